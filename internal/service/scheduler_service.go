package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/k1035130/course-scheduler-api/internal/dto"
	"github.com/k1035130/course-scheduler-api/internal/models"
	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
)

const (
	defaultMaxOptionsPerCourse  = 512
	defaultContinuousGapMinutes = 10
)

type catalogProvider interface {
	Snapshot() *models.Catalog
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SchedulerConfig tunes the search engine.
type SchedulerConfig struct {
	// MaxOptionsPerCourse caps the per-course cartesian product of component
	// sections. Zero or negative disables the cap.
	MaxOptionsPerCourse int
	// ContinuousGapMinutes is the largest break between same-day meetings that
	// still counts as continuous class time.
	ContinuousGapMinutes int
	// ResultCacheTTL bounds how long computed results stay cached.
	ResultCacheTTL time.Duration
}

// SchedulerService resolves a set of requested courses into a conflict-free
// weekly timetable, or explains why none exists. The engine is deterministic:
// the same catalog snapshot and request always produce the same result, which
// is what makes the result cache sound.
type SchedulerService struct {
	catalog catalogProvider
	cache   scheduleCache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SchedulerConfig
}

// NewSchedulerService builds the engine. cache may be nil.
func NewSchedulerService(catalog catalogProvider, cache scheduleCache, metrics *MetricsService, logger *zap.Logger, cfg SchedulerConfig) *SchedulerService {
	if cfg.MaxOptionsPerCourse == 0 {
		cfg.MaxOptionsPerCourse = defaultMaxOptionsPerCourse
	}
	if cfg.ContinuousGapMinutes <= 0 {
		cfg.ContinuousGapMinutes = defaultContinuousGapMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		catalog: catalog,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// courseOption is one fully-specified way to take a course: exactly one
// section per required component, flattened to its meetings.
type courseOption struct {
	meetings []models.ResolvedMeeting
}

// courseCandidates holds the options of one course that survived hard
// filtering, in catalog order.
type courseCandidates struct {
	course  string
	options []courseOption
}

type searchStats struct {
	options int
	relaxed bool
}

// Schedule runs the full pipeline: normalize, validate, expand, filter,
// search strict, search relaxed, format. It never returns an error; every
// failure mode is a ScheduleResult the caller can serialize as-is.
func (s *SchedulerService) Schedule(ctx context.Context, req dto.ScheduleRequest) *models.ScheduleResult {
	started := time.Now()

	prefs := normalizePreferences(req.Preferences)
	courses := normalizeCourseList(req.Requests)
	catalog := s.catalog.Snapshot()

	if err := validateCourseList(catalog, courses); err != nil {
		result := errorResult(err)
		s.metrics.ObserveSchedule(result.Status, false, 0, time.Since(started))
		return result
	}

	key := resultCacheKey(catalog.Version(), courses, prefs)
	if s.cache != nil {
		var cached models.ScheduleResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached
		}
		s.metrics.RecordCacheOperation(false)
	}

	result, stats := s.resolve(catalog, courses, prefs)
	s.metrics.ObserveSchedule(result.Status, stats.relaxed, stats.options, time.Since(started))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cfg.ResultCacheTTL); err != nil {
			s.logger.Warn("failed to cache schedule result", zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Debug("schedule computed",
		zap.Strings("courses", courses),
		zap.String("status", result.Status),
		zap.Bool("relaxed", stats.relaxed),
		zap.Int("options", stats.options),
		zap.Duration("took", time.Since(started)))

	return result
}

// resolve runs expansion, filtering and both search passes against one
// catalog snapshot.
func (s *SchedulerService) resolve(catalog *models.Catalog, courses []string, prefs models.Preferences) (*models.ScheduleResult, searchStats) {
	stats := searchStats{}

	candidates := make([]courseCandidates, 0, len(courses))
	for _, course := range courses {
		options, expandErr := s.expandCourseOptions(catalog, course)
		if expandErr != nil {
			return errorResult(expandErr), stats
		}
		stats.options += len(options)

		survivors := filterHardConstraints(options, prefs)
		if len(survivors) == 0 {
			suffix := ""
			if reasons := hardConstraintSummary(prefs); len(reasons) > 0 {
				suffix = fmt.Sprintf(" (after applying %s)", strings.Join(reasons, " and "))
			}
			return errorResult(appErrors.Clone(appErrors.ErrNoOptions,
				fmt.Sprintf("No valid options remain for %s%s.", course, suffix))), stats
		}
		candidates = append(candidates, courseCandidates{course: course, options: survivors})
	}

	meetings, found := s.search(candidates, prefs, true)
	if !found {
		stats.relaxed = true
		meetings, found = s.search(candidates, prefs, false)
	}
	if !found {
		stats.relaxed = false
		conflict := appErrors.Clone(appErrors.ErrScheduleConflict,
			"These courses conflict and cannot be scheduled together.")
		return &models.ScheduleResult{
			Status:  models.ScheduleStatusConflict,
			Message: conflict.Message,
		}, stats
	}

	return buildOKResult(meetings, prefs, stats.relaxed), stats
}

// expandCourseOptions enumerates every component-section combination of a
// course. The error paths carry user-facing messages: no rules, missing
// sections, or a combination count above the configured cap.
func (s *SchedulerService) expandCourseOptions(catalog *models.Catalog, course string) ([]courseOption, *appErrors.Error) {
	required, ok := catalog.RequiredComponents(course)
	if !ok || len(required) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("No course rules found for %s.", course))
	}

	byComponent := make([][]models.Section, len(required))
	var missing []string
	product := 1
	for i, component := range required {
		sections := catalog.SectionsOf(course, component)
		if len(sections) == 0 {
			missing = append(missing, component)
			continue
		}
		byComponent[i] = sections
		product *= len(sections)
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingSections,
			fmt.Sprintf("Missing sections for %s: %s", course, strings.Join(missing, ", ")))
	}
	if s.cfg.MaxOptionsPerCourse > 0 && product > s.cfg.MaxOptionsPerCourse {
		return nil, appErrors.Clone(appErrors.ErrTooManyOptions,
			fmt.Sprintf("Too many section combinations for %s (%d exceeds limit %d).",
				course, product, s.cfg.MaxOptionsPerCourse))
	}

	options := make([]courseOption, 0, product)
	chosen := make([]models.Section, 0, len(required))
	var build func(idx int)
	build = func(idx int) {
		if idx == len(required) {
			option := resolveOption(course, chosen)
			// A combination whose own components overlap can never appear in
			// a valid timetable, so it is pruned here instead of burdening
			// the search.
			if !selfConflicting(option.meetings) {
				options = append(options, option)
			}
			return
		}
		for _, section := range byComponent[idx] {
			chosen = append(chosen, section)
			build(idx + 1)
			chosen = chosen[:len(chosen)-1]
		}
	}
	build(0)

	return options, nil
}

// selfConflicting reports whether any two meetings of one course option
// overlap each other.
func selfConflicting(meetings []models.ResolvedMeeting) bool {
	for i := 1; i < len(meetings); i++ {
		if hasConflict(meetings[:i], meetings[i:i+1]) {
			return true
		}
	}
	return false
}

// resolveOption flattens the chosen sections into tagged meetings with
// precomputed minute offsets. Labels are validated at catalog load, so the
// parse cannot fail here.
func resolveOption(course string, chosen []models.Section) courseOption {
	var meetings []models.ResolvedMeeting
	for _, section := range chosen {
		for _, meeting := range section.Meetings {
			start, _ := models.ParseClock(meeting.Start)
			end, _ := models.ParseClock(meeting.End)
			meetings = append(meetings, models.ResolvedMeeting{
				Course:     course,
				Component:  section.Component,
				Option:     section.Option,
				Day:        meeting.Day,
				Start:      start,
				End:        end,
				StartLabel: meeting.Start,
				EndLabel:   meeting.End,
			})
		}
	}
	return courseOption{meetings: meetings}
}

// filterHardConstraints keeps only the options every meeting of which
// satisfies the hard preferences.
func filterHardConstraints(options []courseOption, prefs models.Preferences) []courseOption {
	var survivors []courseOption
	for _, option := range options {
		if optionPassesHardConstraints(option, prefs) {
			survivors = append(survivors, option)
		}
	}
	return survivors
}

func optionPassesHardConstraints(option courseOption, prefs models.Preferences) bool {
	if len(prefs.NoClassOnDays) > 0 {
		blocked := make(map[string]struct{}, len(prefs.NoClassOnDays))
		for _, day := range prefs.NoClassOnDays {
			blocked[day] = struct{}{}
		}
		for _, meeting := range option.meetings {
			if _, hit := blocked[meeting.Day]; hit {
				return false
			}
		}
	}

	if prefs.NoClassBefore != nil {
		cutoff, _ := models.ParseClock(*prefs.NoClassBefore)
		for _, meeting := range option.meetings {
			if meeting.Start < cutoff {
				return false
			}
		}
	}

	if prefs.NoClassAfter != nil {
		cutoff, _ := models.ParseClock(*prefs.NoClassAfter)
		for _, meeting := range option.meetings {
			if meeting.End > cutoff {
				return false
			}
		}
	}

	return true
}

// hardConstraintSummary names the hard constraints the caller supplied, used
// when filtering eliminates every option of a course.
func hardConstraintSummary(prefs models.Preferences) []string {
	var reasons []string
	if prefs.NoClassBefore != nil {
		reasons = append(reasons, "noClassBefore="+*prefs.NoClassBefore)
	}
	if prefs.NoClassAfter != nil {
		reasons = append(reasons, "noClassAfter="+*prefs.NoClassAfter)
	}
	if len(prefs.NoClassOnDays) > 0 {
		reasons = append(reasons, "noClassOnDays="+strings.Join(prefs.NoClassOnDays, ","))
	}
	return reasons
}

// search runs one backtracking pass over the per-course candidates. With
// enforceSoft set, branches whose accumulated meetings exceed the continuous
// hours limit are pruned; the relaxed pass reuses the same walk without that
// check. Courses are tried in request order and options in catalog order, so
// the first satisfying assignment is deterministic.
func (s *SchedulerService) search(candidates []courseCandidates, prefs models.Preferences, enforceSoft bool) ([]models.ResolvedMeeting, bool) {
	var walk func(idx int, acc []models.ResolvedMeeting) ([]models.ResolvedMeeting, bool)
	walk = func(idx int, acc []models.ResolvedMeeting) ([]models.ResolvedMeeting, bool) {
		if idx == len(candidates) {
			return acc, true
		}
		for _, option := range candidates[idx].options {
			if hasConflict(acc, option.meetings) {
				continue
			}
			next := make([]models.ResolvedMeeting, 0, len(acc)+len(option.meetings))
			next = append(next, acc...)
			next = append(next, option.meetings...)
			if enforceSoft && prefs.MaxContinuousHours != nil &&
				violatesMaxContinuousHours(next, *prefs.MaxContinuousHours, s.cfg.ContinuousGapMinutes) {
				continue
			}
			if resolved, ok := walk(idx+1, next); ok {
				return resolved, true
			}
		}
		return nil, false
	}
	return walk(0, nil)
}

// hasConflict reports whether any candidate meeting overlaps an accumulated
// one. Meetings on different days never conflict; shared boundaries
// (end == start) do not count as overlap.
func hasConflict(current, candidate []models.ResolvedMeeting) bool {
	for _, c := range candidate {
		for _, e := range current {
			if e.Day == c.Day && c.Start < e.End && c.End > e.Start {
				return true
			}
		}
	}
	return false
}

// violatesMaxContinuousHours merges same-day meetings separated by at most
// gapMinutes into blocks and reports whether any block exceeds the limit.
func violatesMaxContinuousHours(meetings []models.ResolvedMeeting, maxHours float64, gapMinutes int) bool {
	if maxHours <= 0 {
		return false
	}

	byDay := make(map[string][]models.ResolvedMeeting)
	for _, meeting := range meetings {
		byDay[meeting.Day] = append(byDay[meeting.Day], meeting)
	}

	limit := maxHours * 60

	for _, list := range byDay {
		day := make([]models.ResolvedMeeting, len(list))
		copy(day, list)
		sort.SliceStable(day, func(i, j int) bool { return day[i].Start < day[j].Start })

		blockStart := day[0].Start
		blockEnd := day[0].End
		for _, cur := range day[1:] {
			if cur.Start-blockEnd <= gapMinutes {
				if cur.End > blockEnd {
					blockEnd = cur.End
				}
				continue
			}
			if float64(blockEnd-blockStart) > limit {
				return true
			}
			blockStart = cur.Start
			blockEnd = cur.End
		}
		if float64(blockEnd-blockStart) > limit {
			return true
		}
	}

	return false
}

// buildOKResult sorts the resolved meetings into a stable timetable and
// attaches warnings and the echoed preferences.
func buildOKResult(meetings []models.ResolvedMeeting, prefs models.Preferences, relaxed bool) *models.ScheduleResult {
	sorted := make([]models.ResolvedMeeting, len(meetings))
	copy(sorted, meetings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].Start < sorted[j].Start
	})

	timetable := make([]models.TimetableEntry, 0, len(sorted))
	for _, meeting := range sorted {
		timetable = append(timetable, models.TimetableEntry{
			Course:    meeting.Course,
			Component: meeting.Component,
			Option:    meeting.Option,
			Day:       meeting.Day,
			Start:     meeting.StartLabel,
			End:       meeting.EndLabel,
		})
	}

	warnings := []string{}
	if relaxed && prefs.MaxContinuousHours != nil {
		warnings = append(warnings, fmt.Sprintf(
			"Could not satisfy maxContinuousHours=%s. Generated a feasible schedule by relaxing it.",
			formatHours(*prefs.MaxContinuousHours)))
	}

	days := prefs.NoClassOnDays
	if days == nil {
		days = []string{}
	}

	return &models.ScheduleResult{
		Status:    models.ScheduleStatusOK,
		Timetable: timetable,
		Warnings:  warnings,
		AppliedPreferences: &models.AppliedPreferences{
			NoClassBefore:         prefs.NoClassBefore,
			NoClassAfter:          prefs.NoClassAfter,
			NoClassOnDays:         days,
			MaxContinuousHours:    prefs.MaxContinuousHours,
			SoftConstraintRelaxed: relaxed,
		},
	}
}

// normalizeCourseList trims course codes and drops empty entries, preserving
// request order.
func normalizeCourseList(requests []dto.CourseSelection) []string {
	courses := make([]string, 0, len(requests))
	for _, request := range requests {
		course := strings.TrimSpace(request.Course)
		if course != "" {
			courses = append(courses, course)
		}
	}
	return courses
}

// validateCourseList rejects duplicate and unknown courses before any
// expansion work happens. Returns nil when the list is clean.
func validateCourseList(catalog *models.Catalog, courses []string) *appErrors.Error {
	seen := make(map[string]struct{}, len(courses))
	var duplicates []string
	for _, course := range courses {
		if _, dup := seen[course]; dup {
			if !containsString(duplicates, course) {
				duplicates = append(duplicates, course)
			}
			continue
		}
		seen[course] = struct{}{}
	}
	if len(duplicates) > 0 {
		return appErrors.Clone(appErrors.ErrDuplicateCourse,
			fmt.Sprintf("Duplicate course(s) in request: %s", strings.Join(duplicates, ", ")))
	}

	for _, course := range courses {
		if _, known := catalog.RequiredComponents(course); !known {
			return appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("Unknown course: %s.", course))
		}
	}

	return nil
}

// normalizePreferences coerces the loosely-typed preference payload into the
// engine's shape. Malformed fields become absent, never errors.
func normalizePreferences(raw dto.RawPreferences) models.Preferences {
	prefs := models.Preferences{}

	if label, ok := clockString(raw.NoClassBefore); ok {
		prefs.NoClassBefore = &label
	}
	if label, ok := clockString(raw.NoClassAfter); ok {
		prefs.NoClassAfter = &label
	}

	if entries, ok := raw.NoClassOnDays.([]interface{}); ok {
		for _, entry := range entries {
			text, isString := entry.(string)
			if !isString {
				continue
			}
			if day := strings.TrimSpace(text); day != "" {
				prefs.NoClassOnDays = append(prefs.NoClassOnDays, day)
			}
		}
	}

	if hours, ok := finiteHours(raw.MaxContinuousHours); ok && hours > 0 {
		prefs.MaxContinuousHours = &hours
	}

	return prefs
}

func clockString(value interface{}) (string, bool) {
	text, ok := value.(string)
	if !ok {
		return "", false
	}
	if _, err := models.ParseClock(text); err != nil {
		return "", false
	}
	return text, true
}

func finiteHours(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// formatHours renders the hours value the way it was supplied: whole numbers
// without a decimal point.
func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

// resultCacheKey derives a deterministic key from the catalog snapshot
// version and the normalized request. Any catalog reload changes the version
// and therefore the key space.
func resultCacheKey(version string, courses []string, prefs models.Preferences) string {
	var b strings.Builder
	b.WriteString(version)
	b.WriteByte('|')
	b.WriteString(strings.Join(courses, ","))
	b.WriteByte('|')
	if prefs.NoClassBefore != nil {
		b.WriteString(*prefs.NoClassBefore)
	}
	b.WriteByte('|')
	if prefs.NoClassAfter != nil {
		b.WriteString(*prefs.NoClassAfter)
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(prefs.NoClassOnDays, ","))
	b.WriteByte('|')
	if prefs.MaxContinuousHours != nil {
		b.WriteString(formatHours(*prefs.MaxContinuousHours))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "schedule:" + hex.EncodeToString(sum[:])
}

func errorResult(err *appErrors.Error) *models.ScheduleResult {
	return &models.ScheduleResult{Status: models.ScheduleStatusError, Message: err.Message}
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
