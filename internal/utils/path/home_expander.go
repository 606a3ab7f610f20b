// Package pathutils resolves configured filesystem locations.
package pathutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	tildeSymbolConstant             = "~"
	emptyPathMessageConstant        = "path must not be empty"
	unsupportedTildeMessageConstant = "only the current user's home directory can be abbreviated with ~"
)

// ErrEmptyPath indicates a blank path was supplied.
var ErrEmptyPath = errors.New(emptyPathMessageConstant)

// ErrUnsupportedTilde indicates a ~user form, which is not expanded.
var ErrUnsupportedTilde = errors.New(unsupportedTildeMessageConstant)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander turns configured paths such as ~/site into clean absolute paths.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Resolve expands a leading ~ and returns the absolute, cleaned form of candidatePath.
func (expander *HomeExpander) Resolve(candidatePath string) (string, error) {
	trimmed := strings.TrimSpace(candidatePath)
	if len(trimmed) == 0 {
		return "", ErrEmptyPath
	}

	if strings.HasPrefix(trimmed, tildeSymbolConstant) {
		remainder := strings.TrimPrefix(trimmed, tildeSymbolConstant)
		if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
			return "", ErrUnsupportedTilde
		}
		homeDirectory, homeError := expander.homeDirectoryProvider()
		if homeError != nil {
			return "", homeError
		}
		trimmed = filepath.Join(homeDirectory, remainder)
	}

	return filepath.Abs(trimmed)
}
