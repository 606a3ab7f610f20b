package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/temirov/contentaudit/internal/analysis"
	"github.com/temirov/contentaudit/internal/branches"
	"github.com/temirov/contentaudit/internal/changes"
	"github.com/temirov/contentaudit/internal/connectivity"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/revert"
	"github.com/temirov/contentaudit/internal/versioning"
)

const (
	outputFormatTextConstant          = "text"
	outputFormatYAMLConstant          = "yaml"
	outputFormatJSONConstant          = "json"
	jsonIndentConstant                = "  "
	yamlIndentConstant                = 2
	shortHashLengthConstant           = 12
	currentBranchMarkerConstant       = "* "
	otherBranchMarkerConstant         = "  "
	historyLineTemplateConstant       = "%s %s %s\n"
	historyAuthorTemplateConstant     = "<%s>"
	committedTemplateConstant         = "committed %s\n"
	pushedMessageConstant             = "pushed to remote"
	pushedBranchTemplateConstant      = "pushed to remote branch %s\n"
	notPushedMessageConstant          = "not pushed"
	nothingToCommitMessageConstant    = "nothing to commit"
	revertedTemplateConstant          = "reverted %s as %s (attempt %s)\n"
	switchedTemplateConstant          = "switched to %s\n"
	alreadyOnBranchTemplateConstant   = "already on %s\n"
	connectionOKTemplateConstant      = "connection ok: %s\n"
	connectionFailedTemplateConstant  = "connection failed: %s\n"
	connectionRepeatedMessageConstant = "(repeated from the previous test)"
	cleanWorkingTreeMessageConstant   = "working tree clean"
	changedPathTemplateConstant       = "  %s\n"
	noSuggestionMessageConstant       = "no pending changes"
	suggestionAnnotationTemplate      = "  %s: %s\n"
	unsupportedOutputFormatTemplate   = "unsupported output format: %s"
	outputEncodeErrorTemplateConstant = "unable to encode output: %w"
)

var outputFormatChoices = []string{outputFormatTextConstant, outputFormatYAMLConstant, outputFormatJSONConstant}

var (
	hashColor    = color.New(color.FgYellow)
	currentColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgRed)
	subtleColor  = color.New(color.Faint)
)

type textRenderer func(writer io.Writer)

// renderOutput writes value as YAML or JSON, or delegates to renderText for the text format.
func renderOutput(writer io.Writer, format string, value any, renderText textRenderer) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", outputFormatTextConstant:
		renderText(writer)
		return nil
	case outputFormatYAMLConstant:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(value); encodeError != nil {
			return fmt.Errorf(outputEncodeErrorTemplateConstant, encodeError)
		}
		return encoder.Close()
	case outputFormatJSONConstant:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		if encodeError := encoder.Encode(value); encodeError != nil {
			return fmt.Errorf(outputEncodeErrorTemplateConstant, encodeError)
		}
		return nil
	default:
		return fmt.Errorf(unsupportedOutputFormatTemplate, format)
	}
}

func shortHash(hash string) string {
	if len(hash) > shortHashLengthConstant {
		return hash[:shortHashLengthConstant]
	}
	return hash
}

func renderChangeResult(result changes.Result) textRenderer {
	return func(writer io.Writer) {
		if !result.Committed {
			subtleColor.Fprintln(writer, nothingToCommitMessageConstant)
			return
		}
		fmt.Fprintf(writer, committedTemplateConstant, hashColor.Sprint(shortHash(result.CommitHash)))
		if len(result.Message) > 0 {
			fmt.Fprintln(writer, result.Message)
		}
		renderPushState(writer, result.Pushed, result.Branch)
	}
}

func renderPushState(writer io.Writer, pushed bool, branch string) {
	if pushed && len(branch) > 0 {
		successColor.Fprintf(writer, pushedBranchTemplateConstant, branch)
		return
	}
	if pushed {
		successColor.Fprintln(writer, pushedMessageConstant)
		return
	}
	warningColor.Fprintln(writer, notPushedMessageConstant)
}

func renderRevertResult(result revert.Result) textRenderer {
	return func(writer io.Writer) {
		fmt.Fprintf(writer, revertedTemplateConstant,
			hashColor.Sprint(shortHash(result.TargetHash)),
			hashColor.Sprint(shortHash(result.CommitHash)),
			result.AttemptID,
		)
		renderPushState(writer, result.Pushed, result.Branch)
	}
}

func renderHistory(commits []gitrepo.Commit) textRenderer {
	return func(writer io.Writer) {
		for _, commit := range commits {
			author := subtleColor.Sprintf(historyAuthorTemplateConstant, commit.AuthorEmail)
			fmt.Fprintf(writer, historyLineTemplateConstant, hashColor.Sprint(shortHash(commit.Hash)), commit.Message, author)
		}
	}
}

func renderBranches(branchList []gitrepo.Branch) textRenderer {
	return func(writer io.Writer) {
		for _, branch := range branchList {
			if branch.IsCurrent {
				fmt.Fprintln(writer, currentBranchMarkerConstant+currentColor.Sprint(branch.Name))
				continue
			}
			fmt.Fprintln(writer, otherBranchMarkerConstant+branch.Name)
		}
	}
}

func renderSwitchResult(result branches.SwitchResult) textRenderer {
	return func(writer io.Writer) {
		if result.Switched {
			fmt.Fprintf(writer, switchedTemplateConstant, currentColor.Sprint(result.Branch))
			return
		}
		fmt.Fprintf(writer, alreadyOnBranchTemplateConstant, currentColor.Sprint(result.Branch))
	}
}

func renderConnection(result connectivity.Result) textRenderer {
	return func(writer io.Writer) {
		if result.OK {
			successColor.Fprintf(writer, connectionOKTemplateConstant, result.Message)
		} else {
			warningColor.Fprintf(writer, connectionFailedTemplateConstant, result.Message)
		}
		if result.Throttled {
			fmt.Fprintln(writer, connectionRepeatedMessageConstant)
		}
	}
}

func renderStatus(report versioning.StatusReport) textRenderer {
	return func(writer io.Writer) {
		if report.Clean {
			successColor.Fprintln(writer, cleanWorkingTreeMessageConstant)
			return
		}
		for _, changedPath := range report.ChangedPaths {
			warningColor.Fprintf(writer, changedPathTemplateConstant, changedPath)
		}
	}
}

func renderSuggestion(suggestion analysis.Suggestion) textRenderer {
	return func(writer io.Writer) {
		if len(suggestion.Summary) == 0 {
			subtleColor.Fprintln(writer, noSuggestionMessageConstant)
			return
		}
		fmt.Fprintln(writer, suggestion.Summary)
		if len(suggestion.Message) > 0 {
			fmt.Fprintln(writer, suggestion.Message)
		}
		annotationKeys := make([]string, 0, len(suggestion.Annotations))
		for annotationKey := range suggestion.Annotations {
			annotationKeys = append(annotationKeys, annotationKey)
		}
		sort.Strings(annotationKeys)
		for _, annotationKey := range annotationKeys {
			fmt.Fprintf(writer, suggestionAnnotationTemplate, subtleColor.Sprint(annotationKey), suggestion.Annotations[annotationKey])
		}
	}
}
