package gitrepo

import (
	"strings"
	"time"
)

// Commit is an immutable record read from the repository history.
type Commit struct {
	Hash         string    `json:"hash" yaml:"hash"`
	AuthorName   string    `json:"author_name" yaml:"author_name"`
	AuthorEmail  string    `json:"author_email" yaml:"author_email"`
	TimestampUTC time.Time `json:"timestamp_utc" yaml:"timestamp_utc"`
	Message      string    `json:"message" yaml:"message"`
	ISODate      string    `json:"iso_date" yaml:"iso_date"`
}

// Branch describes a local branch.
type Branch struct {
	Name      string `json:"name" yaml:"name"`
	IsCurrent bool   `json:"is_current" yaml:"is_current"`
}

// Remote describes a configured remote and its fetch URL.
type Remote struct {
	Name string
	URL  string
}

// RemoteRef is a single line of ls-remote output.
type RemoteRef struct {
	Hash string
	Name string
}

// StatusEntry is one changed path reported by git status.
type StatusEntry struct {
	Code string `json:"code" yaml:"code"`
	Path string `json:"path" yaml:"path"`
}

// WorkingTreeStatus lists every path that differs from HEAD, including untracked files.
type WorkingTreeStatus struct {
	Entries []StatusEntry `json:"entries" yaml:"entries"`
}

// IsClean reports whether no path has pending changes.
func (status WorkingTreeStatus) IsClean() bool {
	return len(status.Entries) == 0
}

// Count returns the number of changed paths.
func (status WorkingTreeStatus) Count() int {
	return len(status.Entries)
}

// Paths returns the changed paths in status order.
func (status WorkingTreeStatus) Paths() []string {
	paths := make([]string, 0, len(status.Entries))
	for _, entry := range status.Entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

const (
	porcelainRecordSeparatorConstant = "\x00"
	porcelainCodeWidthConstant       = 2
	porcelainRenameCodeConstant      = 'R'
	porcelainCopyCodeConstant        = 'C'
)

// parsePorcelainStatus decodes `git status --porcelain=v1 -z` output.
// Rename and copy records carry the source path as a separate record, which is skipped.
func parsePorcelainStatus(output string) WorkingTreeStatus {
	records := strings.Split(output, porcelainRecordSeparatorConstant)
	entries := make([]StatusEntry, 0, len(records))
	for recordIndex := 0; recordIndex < len(records); recordIndex++ {
		record := records[recordIndex]
		if len(record) <= porcelainCodeWidthConstant+1 {
			continue
		}
		code := record[:porcelainCodeWidthConstant]
		path := record[porcelainCodeWidthConstant+1:]
		entries = append(entries, StatusEntry{Code: strings.TrimSpace(code), Path: path})
		if code[0] == porcelainRenameCodeConstant || code[0] == porcelainCopyCodeConstant {
			recordIndex++
		}
	}
	return WorkingTreeStatus{Entries: entries}
}
