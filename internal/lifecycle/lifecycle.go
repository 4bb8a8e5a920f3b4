// Package lifecycle is the publish state machine shared by every mappable entity.
package lifecycle

import (
	"opsmap/internal/domain"
)

type Action string

const (
	ActionPublish   Action = "publish"
	ActionStartEdit Action = "startEdit"
	ActionArchive   Action = "archive"
	ActionRestore   Action = "restore"
)

// Actions lists every action in a stable order.
var Actions = []Action{ActionPublish, ActionStartEdit, ActionArchive, ActionRestore}

func (a Action) Valid() bool {
	switch a {
	case ActionPublish, ActionStartEdit, ActionArchive, ActionRestore:
		return true
	}
	return false
}

// EventType is the audit event name recorded for an action.
func (a Action) EventType() string {
	switch a {
	case ActionPublish:
		return "entity.published"
	case ActionStartEdit:
		return "entity.draft_started"
	case ActionArchive:
		return "entity.archived"
	case ActionRestore:
		return "entity.restored"
	}
	return "entity." + string(a)
}

// Transition returns the status reached by applying action to current.
func Transition(current domain.Status, action Action) (domain.Status, error) {
	return TransitionFor("", current, action)
}

// TransitionFor is Transition with the entity kind carried into the error.
func TransitionFor(kind domain.EntityKind, current domain.Status, action Action) (domain.Status, error) {
	switch current {
	case domain.StatusDraft:
		switch action {
		case ActionPublish:
			return domain.StatusActive, nil
		case ActionStartEdit:
			return domain.StatusDraft, nil
		case ActionArchive:
			return domain.StatusArchived, nil
		}
	case domain.StatusActive:
		switch action {
		case ActionStartEdit:
			return domain.StatusDraft, nil
		case ActionArchive:
			return domain.StatusArchived, nil
		}
	case domain.StatusArchived:
		if action == ActionRestore {
			return domain.StatusDraft, nil
		}
	}
	return current, domain.TransitionError{Kind: kind, From: current, Action: string(action)}
}

// AllowedTransitions lists the actions accepted from current, in Actions order.
func AllowedTransitions(current domain.Status) []Action {
	var out []Action
	for _, a := range Actions {
		if _, err := Transition(current, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// Can reports whether action is accepted from current.
func Can(current domain.Status, action Action) bool {
	_, err := Transition(current, action)
	return err == nil
}

// GapFilledEvent is recorded when a placeholder receives content.
const GapFilledEvent = "entity.gap_filled"

// FillGap returns the status a placeholder takes once content is added.
// Placeholders accept no Action; this promotion happens only through edits.
func FillGap(current domain.Status) (domain.Status, bool) {
	if current != domain.StatusGap {
		return current, false
	}
	return domain.StatusDraft, true
}

// InitialStatus is the status of a freshly created entity.
func InitialStatus(placeholder bool) domain.Status {
	if placeholder {
		return domain.StatusGap
	}
	return domain.StatusDraft
}
