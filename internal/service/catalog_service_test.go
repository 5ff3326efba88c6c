package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/k1035130/course-scheduler-api/internal/models"
)

type stubCatalogSource struct {
	rules    []models.CourseRuleRecord
	sections []models.SectionRecord
	rulesErr error
}

func (s *stubCatalogSource) ListCourseRules(context.Context) ([]models.CourseRuleRecord, error) {
	return s.rules, s.rulesErr
}

func (s *stubCatalogSource) ListSections(context.Context) ([]models.SectionRecord, error) {
	return s.sections, nil
}

func ruleRecord(course, required string) models.CourseRuleRecord {
	return models.CourseRuleRecord{Course: course, Required: types.JSONText(required)}
}

func sectionRecord(course, component, option, meetings string) models.SectionRecord {
	return models.SectionRecord{Course: course, Component: component, Option: option, Meetings: types.JSONText(meetings)}
}

func TestCatalogServiceLoadBuildsSnapshot(t *testing.T) {
	source := &stubCatalogSource{
		rules: []models.CourseRuleRecord{
			ruleRecord("CS100", `["Lecture","Lab"]`),
		},
		sections: []models.SectionRecord{
			sectionRecord("CS100", "Lecture", "101", `[{"day":"Mon","start":"09:00","end":"10:00"}]`),
			sectionRecord("CS100", "Lab", "L01", `[{"day":"Wed","start":"14:00","end":"15:00"}]`),
		},
	}
	svc := NewCatalogService(source, nil, zap.NewNop())

	require.NoError(t, svc.Load(context.Background()))

	snapshot := svc.Snapshot()
	assert.Equal(t, 1, snapshot.RuleCount())
	assert.Equal(t, 2, snapshot.SectionCount())
	assert.NotEmpty(t, snapshot.Version())

	required, ok := snapshot.RequiredComponents("CS100")
	require.True(t, ok)
	assert.Equal(t, []string{"Lecture", "Lab"}, required)

	lectures := snapshot.SectionsOf("CS100", "Lecture")
	require.Len(t, lectures, 1)
	assert.Equal(t, "101", lectures[0].Option)
}

func TestCatalogServiceLoadDropsMalformedRows(t *testing.T) {
	source := &stubCatalogSource{
		rules: []models.CourseRuleRecord{
			ruleRecord("CS100", `["Lecture"]`),
			ruleRecord("BAD1", `"not an array"`),
		},
		sections: []models.SectionRecord{
			sectionRecord("CS100", "Lecture", "101", `[{"day":"Mon","start":"09:00","end":"10:00"}]`),
			sectionRecord("CS100", "Lecture", "102", `{"broken":`),
			sectionRecord("CS100", "Lecture", "", `[]`),
			sectionRecord("CS100", "Lecture", "103", `[{"day":"Mon","start":"nope","end":"10:00"}]`),
			sectionRecord("CS100", "Lecture", "104", `[{"day":"Mon","start":"10:00","end":"09:00"}]`),
		},
	}
	svc := NewCatalogService(source, nil, zap.NewNop())

	require.NoError(t, svc.Load(context.Background()))

	snapshot := svc.Snapshot()
	assert.Equal(t, 1, snapshot.RuleCount())
	assert.Equal(t, 1, snapshot.SectionCount())
}

func TestCatalogServiceLoadFailurePreservesSnapshot(t *testing.T) {
	source := &stubCatalogSource{
		rules: []models.CourseRuleRecord{ruleRecord("CS100", `["Lecture"]`)},
		sections: []models.SectionRecord{
			sectionRecord("CS100", "Lecture", "101", `[{"day":"Mon","start":"09:00","end":"10:00"}]`),
		},
	}
	svc := NewCatalogService(source, nil, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))
	version := svc.Snapshot().Version()

	source.rulesErr = assert.AnError
	require.Error(t, svc.Load(context.Background()))

	assert.Equal(t, version, svc.Snapshot().Version())
	assert.Equal(t, 1, svc.Snapshot().RuleCount())
}

func TestCatalogServiceReloadChangesVersion(t *testing.T) {
	source := &stubCatalogSource{
		rules: []models.CourseRuleRecord{ruleRecord("CS100", `["Lecture"]`)},
	}
	svc := NewCatalogService(source, nil, zap.NewNop())

	require.NoError(t, svc.Load(context.Background()))
	first := svc.Snapshot().Version()
	require.NoError(t, svc.Load(context.Background()))

	assert.NotEqual(t, first, svc.Snapshot().Version())
}

func TestCatalogServiceCoursesFallsBackToSections(t *testing.T) {
	source := &stubCatalogSource{
		sections: []models.SectionRecord{
			sectionRecord("CS100", "Lecture", "101", `[{"day":"Mon","start":"09:00","end":"10:00"}]`),
			sectionRecord("MATH100", "Lecture", "201", `[{"day":"Tue","start":"09:00","end":"10:00"}]`),
		},
	}
	svc := NewCatalogService(source, nil, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	courses, origin := svc.Courses()
	assert.Equal(t, []string{"CS100", "MATH100"}, courses)
	assert.Equal(t, "sections", origin)
}

func TestCatalogServiceEmptyBeforeFirstLoad(t *testing.T) {
	svc := NewCatalogService(&stubCatalogSource{}, nil, zap.NewNop())

	courses, origin := svc.Courses()
	assert.Empty(t, courses)
	assert.Equal(t, "sections", origin)
	assert.Equal(t, 0, svc.Snapshot().RuleCount())
}
