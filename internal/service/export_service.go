package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
	"github.com/noah-isme/enrollment-api/pkg/export"
)

var studentExportHeaders = []string{
	"ID", "Name", "Email",
	"Course 1", "Grade 1", "Credits 1",
	"Course 2", "Grade 2", "Credits 2",
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered document ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders student list projections as downloadable files.
type ExportService struct {
	csv    datasetRenderer
	pdf    datasetRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the defaults from pkg/export.
func NewExportService(csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ExportStudents renders the summaries in the requested format.
func (s *ExportService) ExportStudents(format export.Format, students []models.StudentSummary) (*ExportResult, error) {
	data := BuildStudentDataset(students)

	var renderer datasetRenderer
	switch format {
	case export.FormatCSV:
		renderer = s.csv
	case export.FormatPDF:
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format '%s'", format))
	}

	content, err := renderer.Render(data)
	if err != nil {
		s.logger.Error("render student export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("students-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

// BuildStudentDataset flattens summaries into export rows.
func BuildStudentDataset(students []models.StudentSummary) export.Dataset {
	rows := make([][]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, []string{
			strconv.FormatInt(st.ID, 10),
			st.Name,
			st.Email,
			derefString(st.Course1),
			derefString(st.Course1Grade),
			derefInt(st.Course1Credits),
			derefString(st.Course2),
			derefString(st.Course2Grade),
			derefInt(st.Course2Credits),
		})
	}
	return export.Dataset{Title: "Student Enrollments", Headers: studentExportHeaders, Rows: rows}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
