package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/k1035130/course-scheduler-api/internal/models"
	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
)

type catalogSource interface {
	ListCourseRules(ctx context.Context) ([]models.CourseRuleRecord, error)
	ListSections(ctx context.Context) ([]models.SectionRecord, error)
}

// CatalogService owns the in-memory catalog snapshot. Loading happens at
// startup and on demand; scheduling requests only ever read a snapshot, so a
// reload never disturbs an in-flight search.
type CatalogService struct {
	repo      catalogSource
	validator *validator.Validate
	logger    *zap.Logger
	snapshot  atomic.Value // *models.Catalog
}

// NewCatalogService builds the service.
func NewCatalogService(repo catalogSource, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CatalogService{
		repo:      repo,
		validator: validate,
		logger:    logger,
	}
	s.snapshot.Store(models.NewCatalog("", nil, nil))
	return s
}

// Load fetches rules and sections from the store and swaps in a fresh
// snapshot. Malformed documents are dropped with a warning rather than
// failing the whole load.
func (s *CatalogService) Load(ctx context.Context) error {
	ruleRows, err := s.repo.ListCourseRules(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course rules")
	}
	sectionRows, err := s.repo.ListSections(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	rules := make([]models.CourseRule, 0, len(ruleRows))
	for _, row := range ruleRows {
		var required []string
		if err := json.Unmarshal(row.Required, &required); err != nil {
			s.logger.Warn("dropping course rule with invalid required list",
				zap.String("course", row.Course), zap.Error(err))
			continue
		}
		cleaned := required[:0]
		for _, component := range required {
			if component != "" {
				cleaned = append(cleaned, component)
			}
		}
		if row.Course == "" {
			continue
		}
		rules = append(rules, models.CourseRule{Course: row.Course, Required: cleaned})
	}

	sections := make([]models.Section, 0, len(sectionRows))
	for _, row := range sectionRows {
		var meetings []models.Meeting
		if len(row.Meetings) > 0 {
			if err := json.Unmarshal(row.Meetings, &meetings); err != nil {
				s.logger.Warn("dropping section with invalid meetings document",
					zap.String("course", row.Course), zap.String("component", row.Component), zap.Error(err))
				continue
			}
		}
		section := models.Section{
			Course:    row.Course,
			Component: row.Component,
			Option:    row.Option,
			Meetings:  meetings,
		}
		if err := s.validator.Struct(section); err != nil {
			s.logger.Warn("dropping invalid section",
				zap.String("course", row.Course), zap.String("component", row.Component), zap.Error(err))
			continue
		}
		if err := checkMeetingClocks(meetings); err != nil {
			s.logger.Warn("dropping section with invalid meeting times",
				zap.String("course", row.Course), zap.String("component", row.Component), zap.Error(err))
			continue
		}
		sections = append(sections, section)
	}

	catalog := models.NewCatalog(uuid.NewString(), rules, sections)
	s.snapshot.Store(catalog)
	s.logger.Info("catalog loaded",
		zap.Int("course_rules", catalog.RuleCount()),
		zap.Int("sections", catalog.SectionCount()),
		zap.String("version", catalog.Version()))
	return nil
}

// checkMeetingClocks ensures every meeting carries parseable labels with a
// start strictly before its end. Sections failing this would poison the
// overlap arithmetic, so they never enter a snapshot.
func checkMeetingClocks(meetings []models.Meeting) error {
	for _, meeting := range meetings {
		start, err := models.ParseClock(meeting.Start)
		if err != nil {
			return err
		}
		end, err := models.ParseClock(meeting.End)
		if err != nil {
			return err
		}
		if start >= end {
			return fmt.Errorf("meeting on %s starts at or after its end (%s >= %s)",
				meeting.Day, meeting.Start, meeting.End)
		}
	}
	return nil
}

// Snapshot returns the current read-only catalog.
func (s *CatalogService) Snapshot() *models.Catalog {
	catalog, _ := s.snapshot.Load().(*models.Catalog)
	return catalog
}

// Courses lists known course codes and the index that produced them.
func (s *CatalogService) Courses() ([]string, string) {
	codes, source := s.Snapshot().Courses()
	if codes == nil {
		codes = []string{}
	}
	return codes, source
}
