package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/k1035130/course-scheduler-api/internal/dto"
	"github.com/k1035130/course-scheduler-api/internal/service"
	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
	"github.com/k1035130/course-scheduler-api/pkg/jobs"
	"github.com/k1035130/course-scheduler-api/pkg/response"
)

// JobTypeCatalogReload is the queue job type for catalog refreshes.
const JobTypeCatalogReload = "catalog_reload"

// CatalogHandler exposes catalog read endpoints and the admin reload trigger.
type CatalogHandler struct {
	catalog *service.CatalogService
	queue   *jobs.Queue
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService, queue *jobs.Queue) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, queue: queue}
}

// ListCourses godoc
// @Summary List selectable course codes
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.CourseListResponse}
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, source := h.catalog.Courses()
	response.JSON(c, http.StatusOK, dto.CourseListResponse{Courses: courses, Source: source})
}

// Health godoc
// @Summary Report the loaded catalog snapshot
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.CatalogHealthResponse}
// @Router /catalog/health [get]
func (h *CatalogHandler) Health(c *gin.Context) {
	snapshot := h.catalog.Snapshot()
	courses, _ := snapshot.Courses()

	status := "ok"
	if snapshot.RuleCount() == 0 && snapshot.SectionCount() == 0 {
		status = "empty"
	}
	response.JSON(c, http.StatusOK, dto.CatalogHealthResponse{
		Status:           status,
		CourseRulesCount: snapshot.RuleCount(),
		SectionsCount:    snapshot.SectionCount(),
		CoursesCount:     len(courses),
	})
}

// Reload godoc
// @Summary Trigger an asynchronous catalog reload
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /catalog/reload [post]
func (h *CatalogHandler) Reload(c *gin.Context) {
	job := jobs.Job{
		ID:       uuid.NewString(),
		Type:     JobTypeCatalogReload,
		Enqueued: time.Now().UTC(),
	}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue catalog reload"))
		return
	}
	response.Accepted(c, gin.H{"jobId": job.ID, "type": job.Type})
}
