package models

import "encoding/json"

// Schedule result statuses.
const (
	ScheduleStatusOK       = "ok"
	ScheduleStatusError    = "error"
	ScheduleStatusConflict = "conflict"
)

// ResolvedMeeting is a meeting tagged with its origin, carrying both the
// wall-clock labels and minutes-since-midnight for overlap comparison.
type ResolvedMeeting struct {
	Course     string
	Component  string
	Option     string
	Day        string
	Start      int
	End        int
	StartLabel string
	EndLabel   string
}

// TimetableEntry is one row of the returned weekly timetable.
type TimetableEntry struct {
	Course    string `json:"course" validate:"required"`
	Component string `json:"component" validate:"required"`
	Option    string `json:"option"`
	Day       string `json:"day" validate:"required"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// Preferences holds normalized scheduling preferences. Nil fields mean the
// constraint was absent or malformed in the request.
type Preferences struct {
	NoClassBefore      *string
	NoClassAfter       *string
	NoClassOnDays      []string
	MaxContinuousHours *float64
}

// AppliedPreferences echoes the normalized preferences back to the caller.
type AppliedPreferences struct {
	NoClassBefore         *string  `json:"noClassBefore"`
	NoClassAfter          *string  `json:"noClassAfter"`
	NoClassOnDays         []string `json:"noClassOnDays"`
	MaxContinuousHours    *float64 `json:"maxContinuousHours"`
	SoftConstraintRelaxed bool     `json:"softConstraintRelaxed"`
}

// ScheduleResult is the engine output: ok carries a timetable, error and
// conflict carry a message.
type ScheduleResult struct {
	Status             string
	Message            string
	Timetable          []TimetableEntry
	Warnings           []string
	AppliedPreferences *AppliedPreferences
}

// MarshalJSON keeps the wire contract tight: error and conflict results carry
// only status and message, ok results always include timetable and warnings
// arrays even when empty.
func (r ScheduleResult) MarshalJSON() ([]byte, error) {
	if r.Status != ScheduleStatusOK {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{Status: r.Status, Message: r.Message})
	}

	timetable := r.Timetable
	if timetable == nil {
		timetable = []TimetableEntry{}
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return json.Marshal(struct {
		Status             string              `json:"status"`
		Timetable          []TimetableEntry    `json:"timetable"`
		Warnings           []string            `json:"warnings"`
		AppliedPreferences *AppliedPreferences `json:"appliedPreferences,omitempty"`
	}{
		Status:             r.Status,
		Timetable:          timetable,
		Warnings:           warnings,
		AppliedPreferences: r.AppliedPreferences,
	})
}

// UnmarshalJSON restores a result produced by MarshalJSON, used when reading
// cached results back.
func (r *ScheduleResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status             string              `json:"status"`
		Message            string              `json:"message"`
		Timetable          []TimetableEntry    `json:"timetable"`
		Warnings           []string            `json:"warnings"`
		AppliedPreferences *AppliedPreferences `json:"appliedPreferences"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Status = raw.Status
	r.Message = raw.Message
	r.Timetable = raw.Timetable
	r.Warnings = raw.Warnings
	r.AppliedPreferences = raw.AppliedPreferences
	return nil
}
