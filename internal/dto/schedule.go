package dto

import "github.com/k1035130/course-scheduler-api/internal/models"

// CourseSelection names one requested course.
type CourseSelection struct {
	Course string `json:"course"`
}

// RawPreferences mirrors the loosely-typed preference object from the client.
// Fields of the wrong shape are normalized to absent, never rejected.
type RawPreferences struct {
	NoClassBefore      any `json:"noClassBefore"`
	NoClassAfter       any `json:"noClassAfter"`
	NoClassOnDays      any `json:"noClassOnDays"`
	MaxContinuousHours any `json:"maxContinuousHours"`
}

// ScheduleRequest is the POST /schedule payload.
type ScheduleRequest struct {
	Requests    []CourseSelection `json:"requests"`
	Preferences RawPreferences    `json:"preferences"`
}

// CourseListResponse lists selectable course codes and which index produced them.
type CourseListResponse struct {
	Courses []string `json:"courses"`
	Source  string   `json:"source"`
}

// CatalogHealthResponse summarises the loaded catalog snapshot.
type CatalogHealthResponse struct {
	Status           string `json:"status"`
	CourseRulesCount int    `json:"courseRulesCount"`
	SectionsCount    int    `json:"sectionsCount"`
	CoursesCount     int    `json:"coursesCount"`
}

// ExportScheduleRequest asks for a rendered copy of a timetable.
type ExportScheduleRequest struct {
	Format    string                  `json:"format" validate:"omitempty,oneof=csv pdf"`
	Title     string                  `json:"title" validate:"omitempty,max=120"`
	Timetable []models.TimetableEntry `json:"timetable" validate:"required,min=1,dive"`
}
