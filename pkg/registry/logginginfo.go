package registry

import (
	"sort"
	"strconv"
)

// LoggingType classifies a LoggingInfo entry.
type LoggingType string

const (
	LogOnboard LoggingType = "onboard"
	LogUpdate  LoggingType = "update"
	LogAudit   LoggingType = "audit"
	LogDraft   LoggingType = "draft"
	LogMove    LoggingType = "move"
)

// ActionType is the concrete action recorded by a LoggingInfo entry.
type ActionType string

const (
	ActionRegistered     ActionType = "registered"
	ActionApproved       ActionType = "approved"
	ActionRejected       ActionType = "rejected"
	ActionUpdated        ActionType = "updated"
	ActionUpdatedVersion ActionType = "updated version"
	ActionActivated      ActionType = "activated"
	ActionDeactivated    ActionType = "deactivated"
	ActionValid          ActionType = "valid"
	ActionInvalid        ActionType = "invalid"
	ActionMoved          ActionType = "moved"
	ActionCreated        ActionType = "created"
)

// LoggingInfo is one immutable audit-trail entry on a bundle. Entries are
// never mutated or removed once appended.
type LoggingInfo struct {
	Type         LoggingType `json:"type"`
	ActionType   ActionType  `json:"actionType"`
	Date         string      `json:"date"` // epoch millis
	UserEmail    string      `json:"userEmail,omitempty"`
	UserFullName string      `json:"userFullName,omitempty"`
	Comment      string      `json:"comment,omitempty"`
}

// dateMillis parses the entry date; unparseable dates sort first.
func (l LoggingInfo) dateMillis() int64 {
	n, err := strconv.ParseInt(l.Date, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SortLoggingInfo orders entries ascending by date, preserving the relative
// order of entries that share a timestamp.
func SortLoggingInfo(list []LoggingInfo) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].dateMillis() < list[j].dateMillis()
	})
}

// LatestOf returns the max-by-date entry of the given type, or nil.
// The list is assumed sorted ascending by date.
func LatestOf(list []LoggingInfo, t LoggingType) *LoggingInfo {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Type == t {
			entry := list[i]
			return &entry
		}
	}
	return nil
}
