package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/k1035130/course-scheduler-api/internal/models"
)

// CatalogRepository reads the course catalog from PostgreSQL. The catalog is
// maintained by an external ingestion pipeline; this repository is read-only.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new repository instance.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCourseRules returns every course requirement row.
func (r *CatalogRepository) ListCourseRules(ctx context.Context) ([]models.CourseRuleRecord, error) {
	const query = `SELECT course, required FROM course_rules ORDER BY course`
	var rules []models.CourseRuleRecord
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list course rules: %w", err)
	}
	return rules, nil
}

// ListSections returns every section row. The ordering defines the engine's
// enumeration order within a component, so it must stay deterministic.
func (r *CatalogRepository) ListSections(ctx context.Context) ([]models.SectionRecord, error) {
	const query = `SELECT course, component, option_label, meetings FROM sections ORDER BY course, component, option_label`
	var sections []models.SectionRecord
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}
