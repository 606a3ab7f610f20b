// Package flags provides pflag values for enumerated and yes/no command options.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefix  = "<"
	choicePlaceholderSuffix  = ">"
	choiceSeparatorLiteral   = "|"
	choiceUsageEmptyTemplate = "`%s`"
	choiceUsageFullTemplate  = "`%s` %s"
	choiceTypeName           = "choice"
	choiceInvalidTemplate    = "must be one of %s"
)

// ChoiceValue is a pflag.Value restricted to a fixed set of lower-case options.
type ChoiceValue struct {
	target  *string
	choices []string
}

// NewChoiceValue stores defaultChoice in target and accepts only choices afterwards.
func NewChoiceValue(target *string, defaultChoice string, choices []string) *ChoiceValue {
	normalized := normalizeChoices(choices)
	*target = strings.ToLower(strings.TrimSpace(defaultChoice))
	return &ChoiceValue{target: target, choices: normalized}
}

// String returns the current choice.
func (value *ChoiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

// Set accepts a case-insensitive member of the configured choices.
func (value *ChoiceValue) Set(candidate string) error {
	normalized := strings.ToLower(strings.TrimSpace(candidate))
	for _, choice := range value.choices {
		if choice == normalized {
			*value.target = normalized
			return nil
		}
	}
	return fmt.Errorf(choiceInvalidTemplate, strings.Join(value.choices, choiceSeparatorLiteral))
}

// Type names the value in help output.
func (value *ChoiceValue) Type() string {
	return choiceTypeName
}

// AddChoiceFlag registers a flag restricted to choices with the default highlighted in its usage.
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultChoice string, choices []string, description string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	flagSet.Var(NewChoiceValue(target, defaultChoice, choices), name, FormatChoiceUsage(defaultChoice, choices, description))
}

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := buildChoicePlaceholder(defaultChoice, choices)
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

func buildChoicePlaceholder(defaultChoice string, choices []string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	normalized := normalizeChoices(choices)
	highlighted := make([]string, 0, len(normalized))
	for _, choice := range normalized {
		if choice == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		highlighted = append(highlighted, choice)
	}
	return choicePlaceholderPrefix + strings.Join(highlighted, choiceSeparatorLiteral) + choicePlaceholderSuffix
}

func normalizeChoices(choices []string) []string {
	normalized := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.ToLower(strings.TrimSpace(choice))
		if len(trimmedChoice) == 0 {
			continue
		}
		if _, exists := seen[trimmedChoice]; exists {
			continue
		}
		seen[trimmedChoice] = struct{}{}
		normalized = append(normalized, trimmedChoice)
	}
	return normalized
}
