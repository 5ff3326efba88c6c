package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/k1035130/course-scheduler-api/internal/dto"
	"github.com/k1035130/course-scheduler-api/internal/models"
)

type stubCatalogProvider struct {
	catalog *models.Catalog
}

func (s stubCatalogProvider) Snapshot() *models.Catalog { return s.catalog }

type stubScheduleCache struct {
	store map[string][]byte
	gets  int
	hits  int
	sets  int
}

func newStubScheduleCache() *stubScheduleCache {
	return &stubScheduleCache{store: map[string][]byte{}}
}

func (c *stubScheduleCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.store[key]
	if !ok {
		return assert.AnError
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *stubScheduleCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func meeting(day, start, end string) models.Meeting {
	return models.Meeting{Day: day, Start: start, End: end}
}

func newTestCatalog() *models.Catalog {
	rules := []models.CourseRule{
		{Course: "CS100", Required: []string{"Lecture", "Lab"}},
		{Course: "MATH100", Required: []string{"Lecture"}},
		{Course: "PHYS110", Required: []string{"Lecture"}},
		{Course: "CHEM110", Required: []string{"Lecture"}},
		{Course: "ENGL99", Required: []string{"Lecture", "Tutorial"}},
		{Course: "HIST200", Required: nil},
		{Course: "STAT300", Required: []string{"Lecture"}},
	}
	sections := []models.Section{
		{Course: "CS100", Component: "Lecture", Option: "101", Meetings: []models.Meeting{meeting("Mon", "09:00", "10:00")}},
		{Course: "CS100", Component: "Lecture", Option: "102", Meetings: []models.Meeting{meeting("Mon", "11:00", "12:00")}},
		{Course: "CS100", Component: "Lab", Option: "L01", Meetings: []models.Meeting{meeting("Wed", "14:00", "15:00")}},

		{Course: "MATH100", Component: "Lecture", Option: "201", Meetings: []models.Meeting{meeting("Mon", "09:00", "10:00")}},

		{Course: "PHYS110", Component: "Lecture", Option: "301", Meetings: []models.Meeting{meeting("Tue", "10:00", "11:00")}},
		{Course: "CHEM110", Component: "Lecture", Option: "401", Meetings: []models.Meeting{meeting("Tue", "10:00", "11:00")}},

		{Course: "ENGL99", Component: "Lecture", Option: "501", Meetings: []models.Meeting{meeting("Fri", "09:00", "10:00")}},

		{Course: "STAT300", Component: "Lecture", Option: "601", Meetings: []models.Meeting{
			meeting("Thu", "09:00", "11:00"),
			meeting("Thu", "11:05", "13:00"),
		}},
	}
	return models.NewCatalog("v-test", rules, sections)
}

func newTestScheduler(catalog *models.Catalog, cache scheduleCache, cfg SchedulerConfig) *SchedulerService {
	return NewSchedulerService(stubCatalogProvider{catalog: catalog}, cache, nil, zap.NewNop(), cfg)
}

func scheduleCourses(t *testing.T, s *SchedulerService, courses []string, prefs dto.RawPreferences) *models.ScheduleResult {
	t.Helper()
	selections := make([]dto.CourseSelection, 0, len(courses))
	for _, course := range courses {
		selections = append(selections, dto.CourseSelection{Course: course})
	}
	return s.Schedule(context.Background(), dto.ScheduleRequest{Requests: selections, Preferences: prefs})
}

func TestSchedulerEmptyRequestYieldsEmptyTimetable(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, nil, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	assert.Empty(t, result.Timetable)
	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.AppliedPreferences)
	assert.False(t, result.AppliedPreferences.SoftConstraintRelaxed)
}

func TestSchedulerSingleCoursePicksFirstOption(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Timetable, 2)
	assert.Equal(t, "101", result.Timetable[0].Option)
	assert.Equal(t, "Mon", result.Timetable[0].Day)
	assert.Equal(t, "L01", result.Timetable[1].Option)
	assert.Equal(t, "Wed", result.Timetable[1].Day)
}

func TestSchedulerBacktracksAroundOverlap(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"MATH100", "CS100"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Timetable, 3)
	// Sorted by day then start: MATH100 09:00, the later CS100 lecture, the lab.
	assert.Equal(t, "MATH100", result.Timetable[0].Course)
	assert.Equal(t, "09:00", result.Timetable[0].Start)
	assert.Equal(t, "102", result.Timetable[1].Option)
	assert.Equal(t, "11:00", result.Timetable[1].Start)
	assert.Equal(t, "Wed", result.Timetable[2].Day)
}

func TestSchedulerPrunesInternallyOverlappingCombinations(t *testing.T) {
	rules := []models.CourseRule{{Course: "CS100", Required: []string{"Lecture", "Lab"}}}
	sections := []models.Section{
		{Course: "CS100", Component: "Lecture", Option: "A", Meetings: []models.Meeting{meeting("Mon", "09:00", "10:00")}},
		{Course: "CS100", Component: "Lecture", Option: "B", Meetings: []models.Meeting{meeting("Mon", "11:00", "12:00")}},
		{Course: "CS100", Component: "Lab", Option: "M", Meetings: []models.Meeting{meeting("Mon", "09:30", "10:30")}},
		{Course: "CS100", Component: "Lab", Option: "W", Meetings: []models.Meeting{meeting("Wed", "14:00", "15:00")}},
	}
	s := newTestScheduler(models.NewCatalog("v-overlap", rules, sections), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Timetable, 2)
	// Lecture A overlaps lab M, so the first viable combination pairs it
	// with the Wednesday lab.
	assert.Equal(t, "A", result.Timetable[0].Option)
	assert.Equal(t, "Mon", result.Timetable[0].Day)
	assert.Equal(t, "W", result.Timetable[1].Option)
	assert.Equal(t, "Wed", result.Timetable[1].Day)
}

func TestSchedulerIsDeterministic(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	first := scheduleCourses(t, s, []string{"MATH100", "CS100"}, dto.RawPreferences{})
	second := scheduleCourses(t, s, []string{"MATH100", "CS100"}, dto.RawPreferences{})

	assert.Equal(t, first, second)
}

func TestSchedulerDuplicateCourse(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"MATH100", "MATH100"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "Duplicate course(s) in request: MATH100", result.Message)
	assert.Empty(t, result.Timetable)
}

func TestSchedulerUnknownCourse(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"BIO999"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "Unknown course: BIO999.", result.Message)
}

func TestSchedulerCourseWithoutRules(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"HIST200"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "No course rules found for HIST200.", result.Message)
}

func TestSchedulerMissingSections(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"ENGL99"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "Missing sections for ENGL99: Tutorial", result.Message)
}

func TestSchedulerConflictAfterBothPasses(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"PHYS110", "CHEM110"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusConflict, result.Status)
	assert.Equal(t, "These courses conflict and cannot be scheduled together.", result.Message)
}

func TestSchedulerHardConstraintFiltersEarlySections(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{NoClassBefore: "10:00"})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Timetable, 2)
	assert.Equal(t, "102", result.Timetable[0].Option)
	require.NotNil(t, result.AppliedPreferences.NoClassBefore)
	assert.Equal(t, "10:00", *result.AppliedPreferences.NoClassBefore)
}

func TestSchedulerHardConstraintExhaustsOptions(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{NoClassBefore: "13:00"})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "No valid options remain for CS100 (after applying noClassBefore=13:00).", result.Message)
}

func TestSchedulerBlockedDayExhaustsOptions(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"MATH100"}, dto.RawPreferences{
		NoClassOnDays: []interface{}{"Mon"},
	})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "No valid options remain for MATH100 (after applying noClassOnDays=Mon).", result.Message)
}

func TestSchedulerSoftConstraintRelaxedWithWarning(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	// STAT300's only option is a near-contiguous four hour block.
	result := scheduleCourses(t, s, []string{"STAT300"}, dto.RawPreferences{MaxContinuousHours: 3.0})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Could not satisfy maxContinuousHours=3. Generated a feasible schedule by relaxing it.", result.Warnings[0])
	assert.True(t, result.AppliedPreferences.SoftConstraintRelaxed)
}

func TestSchedulerSoftConstraintSatisfiable(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{MaxContinuousHours: 3.0})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.AppliedPreferences.SoftConstraintRelaxed)
}

func TestSchedulerCombinationCeiling(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{MaxOptionsPerCourse: 1})

	result := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{})

	require.Equal(t, models.ScheduleStatusError, result.Status)
	assert.Equal(t, "Too many section combinations for CS100 (2 exceeds limit 1).", result.Message)
}

func TestSchedulerTrimsAndDropsEmptyCourseEntries(t *testing.T) {
	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})

	result := s.Schedule(context.Background(), dto.ScheduleRequest{
		Requests: []dto.CourseSelection{{Course: "  MATH100 "}, {Course: "   "}},
	})

	require.Equal(t, models.ScheduleStatusOK, result.Status)
	require.Len(t, result.Timetable, 1)
	assert.Equal(t, "MATH100", result.Timetable[0].Course)
}

func TestSchedulerServesRepeatRequestFromCache(t *testing.T) {
	cache := newStubScheduleCache()
	s := newTestScheduler(newTestCatalog(), cache, SchedulerConfig{})

	first := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{})
	second := scheduleCourses(t, s, []string{"CS100"}, dto.RawPreferences{})

	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Timetable, second.Timetable)
}

func TestNormalizePreferencesCoercesLooseTypes(t *testing.T) {
	prefs := normalizePreferences(dto.RawPreferences{
		NoClassBefore:      "10:00",
		NoClassAfter:       42.0,
		NoClassOnDays:      []interface{}{"Fri", "  ", nil, "Mon "},
		MaxContinuousHours: "2.5",
	})

	require.NotNil(t, prefs.NoClassBefore)
	assert.Equal(t, "10:00", *prefs.NoClassBefore)
	assert.Nil(t, prefs.NoClassAfter)
	assert.Equal(t, []string{"Fri", "Mon"}, prefs.NoClassOnDays)
	require.NotNil(t, prefs.MaxContinuousHours)
	assert.Equal(t, 2.5, *prefs.MaxContinuousHours)
}

func TestNormalizePreferencesRejectsMalformedValues(t *testing.T) {
	prefs := normalizePreferences(dto.RawPreferences{
		NoClassBefore:      "not a clock",
		NoClassAfter:       "25:99",
		NoClassOnDays:      "Fri",
		MaxContinuousHours: -1.0,
	})

	assert.Nil(t, prefs.NoClassBefore)
	assert.Nil(t, prefs.NoClassAfter)
	assert.Empty(t, prefs.NoClassOnDays)
	assert.Nil(t, prefs.MaxContinuousHours)
}

func TestViolatesMaxContinuousHoursGapBoundary(t *testing.T) {
	block := func(gapMinutes int) []models.ResolvedMeeting {
		return []models.ResolvedMeeting{
			{Day: "Thu", Start: 9 * 60, End: 11 * 60},
			{Day: "Thu", Start: 11*60 + gapMinutes, End: 13 * 60},
		}
	}

	// A ten minute break still counts as one continuous block.
	assert.True(t, violatesMaxContinuousHours(block(10), 3, 10))
	// Eleven minutes splits the day into two blocks of at most two hours.
	assert.False(t, violatesMaxContinuousHours(block(11), 3, 10))
}

func TestHasConflictSharedBoundaryDoesNotOverlap(t *testing.T) {
	current := []models.ResolvedMeeting{{Day: "Mon", Start: 9 * 60, End: 10 * 60}}

	assert.False(t, hasConflict(current, []models.ResolvedMeeting{{Day: "Mon", Start: 10 * 60, End: 11 * 60}}))
	assert.False(t, hasConflict(current, []models.ResolvedMeeting{{Day: "Tue", Start: 9 * 60, End: 10 * 60}}))
	assert.True(t, hasConflict(current, []models.ResolvedMeeting{{Day: "Mon", Start: 9*60 + 30, End: 10*60 + 30}}))
}

func TestScheduleResultJSONContract(t *testing.T) {
	errResult := models.ScheduleResult{Status: models.ScheduleStatusError, Message: "Unknown course: BIO999."}
	raw, err := json.Marshal(errResult)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"Unknown course: BIO999."}`, string(raw))

	s := newTestScheduler(newTestCatalog(), nil, SchedulerConfig{})
	okResult := scheduleCourses(t, s, nil, dto.RawPreferences{})
	raw, err = json.Marshal(okResult)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ok", decoded["status"])
	assert.NotNil(t, decoded["timetable"])
	assert.NotNil(t, decoded["warnings"])
	assert.NotContains(t, decoded, "message")
}
