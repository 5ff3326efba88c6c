package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/k1035130/course-scheduler-api/internal/dto"
	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
	"github.com/k1035130/course-scheduler-api/pkg/export"
)

const defaultExportTitle = "Weekly Timetable"

// ExportResult is a rendered timetable ready to stream back to the caller.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders timetables into downloadable CSV or PDF documents.
type ExportService struct {
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
	maxEntries int
}

// NewExportService builds the service. maxEntries caps the timetable size a
// single export may carry; zero or negative disables the cap.
func NewExportService(csv *export.CSVExporter, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger, maxEntries int) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:        csv,
		pdf:        pdf,
		validator:  validate,
		logger:     logger,
		maxEntries: maxEntries,
	}
}

// Export validates the request and renders the timetable in the requested
// format. The format defaults to CSV when omitted.
func (s *ExportService) Export(req dto.ExportScheduleRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	if s.maxEntries > 0 && len(req.Timetable) > s.maxEntries {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("timetable has %d entries, export limit is %d", len(req.Timetable), s.maxEntries))
	}

	title := req.Title
	if title == "" {
		title = defaultExportTitle
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Component", "Option", "Day", "Start", "End"},
		Rows:    make([][]string, 0, len(req.Timetable)),
	}
	for _, entry := range req.Timetable {
		dataset.Rows = append(dataset.Rows, []string{
			entry.Course, entry.Component, entry.Option, entry.Day, entry.Start, entry.End,
		})
	}

	format := req.Format
	if format == "" {
		format = "csv"
	}

	var (
		content     []byte
		contentType string
		err         error
	)
	switch format {
	case "pdf":
		content, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		s.logger.Error("failed to render timetable export",
			zap.String("format", format), zap.Int("entries", len(req.Timetable)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	result := &ExportResult{
		Filename:    fmt.Sprintf("timetable-%s.%s", uuid.NewString()[:8], format),
		ContentType: contentType,
		Content:     content,
	}
	s.logger.Info("timetable exported",
		zap.String("format", format), zap.String("filename", result.Filename), zap.Int("entries", len(req.Timetable)))
	return result, nil
}
