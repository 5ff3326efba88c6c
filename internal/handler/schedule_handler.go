package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/k1035130/course-scheduler-api/internal/dto"
	"github.com/k1035130/course-scheduler-api/internal/models"
	"github.com/k1035130/course-scheduler-api/internal/service"
	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
	"github.com/k1035130/course-scheduler-api/pkg/response"
)

// ScheduleHandler exposes the scheduling and export endpoints.
type ScheduleHandler struct {
	scheduler *service.SchedulerService
	exporter  *service.ExportService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(scheduler *service.SchedulerService, exporter *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler, exporter: exporter}
}

// Schedule godoc
// @Summary Resolve requested courses into a conflict-free timetable
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRequest true "Course requests and preferences"
// @Success 200 {object} models.ScheduleResult
// @Failure 400 {object} models.ScheduleResult
// @Router /schedule [post]
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  models.ScheduleStatusError,
			"message": "Invalid request payload.",
		})
		return
	}

	result := h.scheduler.Schedule(c.Request.Context(), req)

	// The result body is the contract; clients key off its status field, so
	// it is returned as-is rather than wrapped in the catalog envelope.
	status := http.StatusOK
	if result.Status != models.ScheduleStatusOK {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

// Export godoc
// @Summary Download a timetable as CSV or PDF
// @Tags Schedule
// @Accept json
// @Produce text/csv
// @Produce application/pdf
// @Param payload body dto.ExportScheduleRequest true "Timetable to render"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /schedule/export [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.exporter.Export(req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
