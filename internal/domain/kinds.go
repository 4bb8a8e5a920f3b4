package domain

import "time"

// Status is the publish lifecycle state shared by every mappable entity.
type Status string

const (
	StatusGap      Status = "gap"
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusGap, StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

type EntityKind string

const (
	KindWorkspace           EntityKind = "workspace"
	KindCompany             EntityKind = "company"
	KindFunction            EntityKind = "function"
	KindSubFunction         EntityKind = "sub_function"
	KindCoreActivity        EntityKind = "core_activity"
	KindSubFunctionActivity EntityKind = "sub_function_activity"
	KindStepActivity        EntityKind = "step_activity"
	KindActivitySoftware    EntityKind = "activity_software"
	KindWorkflow            EntityKind = "workflow"
	KindPhase               EntityKind = "phase"
	KindStep                EntityKind = "step"
	KindPerson              EntityKind = "person"
	KindRole                EntityKind = "role"
	KindSoftware            EntityKind = "software"
	KindChecklistItem       EntityKind = "checklist_item"
)

// Mappable reports whether entities of kind k carry a Status.
func (k EntityKind) Mappable() bool {
	switch k {
	case KindFunction, KindSubFunction, KindCoreActivity, KindWorkflow:
		return true
	}
	return false
}

// TimeFormat is the layout of every modification marker.
const TimeFormat = time.RFC3339Nano

// FormatTime renders t as a modification marker.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a modification marker. Empty or malformed markers yield the zero time.
func ParseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeFormat, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LinkKey is the composite key of a join row.
func LinkKey(parentID, childID string) string {
	return parentID + "|" + childID
}
