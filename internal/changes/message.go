package changes

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/temirov/contentaudit/internal/vcserrors"
)

// Action is the kind of content mutation being recorded.
type Action string

// Supported actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const (
	contentMessageTemplateConstant = "%s: '%s' %s by %s. [ci skip]"
	sourceMessageTemplateConstant  = "source: %s (%s) [ci skip]"

	actionFieldConstant                    = "action"
	contentTypeFieldConstant               = "content_type"
	slugFieldConstant                      = "slug"
	actorFieldConstant                     = "actor"
	messageFieldConstant                   = "message"
	unknownActionReasonConstant            = "action must be create, update or delete"
	blankValueReasonTemplateConstant       = "%s must not be empty"
	controlCharacterReasonTemplateConstant = "%s must be a single line"
)

// pastTenseVerbs is the only source of the verb used in content commit messages.
var pastTenseVerbs = map[Action]string{
	ActionCreate: "oluşturuldu",
	ActionUpdate: "güncellendi",
	ActionDelete: "silindi",
}

// ParseAction converts user input into an Action.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	if _, known := pastTenseVerbs[action]; !known {
		return "", vcserrors.ArgumentError{Field: actionFieldConstant, Reason: unknownActionReasonConstant}
	}
	return action, nil
}

// PastTense returns the verb recorded for action and whether the action is known.
func (action Action) PastTense() (string, bool) {
	verb, known := pastTenseVerbs[action]
	return verb, known
}

// Descriptor describes one content mutation for commit message synthesis.
// Paths optionally limits the commit to the files the mutation wrote.
type Descriptor struct {
	Action        Action
	ContentType   string
	Slug          string
	ActorIdentity string
	Paths         []string
}

// Validate reports the first field that cannot appear in a commit message.
func (descriptor Descriptor) Validate() error {
	if _, known := pastTenseVerbs[descriptor.Action]; !known {
		return vcserrors.ArgumentError{Field: actionFieldConstant, Reason: unknownActionReasonConstant}
	}
	if err := validateSingleLine(contentTypeFieldConstant, descriptor.ContentType); err != nil {
		return err
	}
	if err := validateSingleLine(slugFieldConstant, descriptor.Slug); err != nil {
		return err
	}
	return validateSingleLine(actorFieldConstant, descriptor.ActorIdentity)
}

// FormatMessage renders "<contentType>: '<slug>' <verb> by <actor>. [ci skip]".
func FormatMessage(descriptor Descriptor) (string, error) {
	if err := descriptor.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(contentMessageTemplateConstant,
		strings.TrimSpace(descriptor.ContentType),
		strings.TrimSpace(descriptor.Slug),
		pastTenseVerbs[descriptor.Action],
		strings.TrimSpace(descriptor.ActorIdentity),
	), nil
}

// FormatSourceMessage renders "source: <message> (<actor>) [ci skip]".
func FormatSourceMessage(message string, actor string) (string, error) {
	if len(strings.TrimSpace(message)) == 0 {
		return "", vcserrors.ArgumentError{Field: messageFieldConstant, Reason: fmt.Sprintf(blankValueReasonTemplateConstant, messageFieldConstant)}
	}
	if err := validateSingleLine(actorFieldConstant, actor); err != nil {
		return "", err
	}
	return fmt.Sprintf(sourceMessageTemplateConstant, strings.TrimSpace(message), strings.TrimSpace(actor)), nil
}

func validateSingleLine(field string, value string) error {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return vcserrors.ArgumentError{Field: field, Reason: fmt.Sprintf(blankValueReasonTemplateConstant, field)}
	}
	if strings.IndexFunc(trimmed, unicode.IsControl) != -1 {
		return vcserrors.ArgumentError{Field: field, Reason: fmt.Sprintf(controlCharacterReasonTemplateConstant, field)}
	}
	return nil
}
