package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportResult is a rendered file ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type rosterSource interface {
	Roster(ctx context.Context, code string) ([]dto.RosterStudent, dto.RosterSummary)
}

var rosterHeaders = []string{"Student ID", "Last Name", "First Name", "Email", "Contact", "Status", "Balance", "Payment", "Remarks"}

// ExportService renders an instructor's roster as CSV or PDF.
type ExportService struct {
	roster rosterSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(roster rosterSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithBOM())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{roster: roster, csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ExportRoster renders the roster for code.
func (s *ExportService) ExportRoster(ctx context.Context, code string, format ExportFormat) (*ExportResult, error) {
	rows, summary := s.roster.Roster(ctx, code)
	dataset := buildRosterDataset(rows)
	stamp := s.now().Format("20060102_150405")

	var (
		payload     []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		title := fmt.Sprintf("Student Roster %s (%d students, balance %.2f)", code, summary.Total, summary.TotalBalance)
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}

	s.logger.Info("roster exported", zap.String("code", code), zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportResult{
		Filename:    fmt.Sprintf("roster_%s_%s.%s", code, stamp, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func buildRosterDataset(rows []dto.RosterStudent) export.Dataset {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"Student ID": row.StudentID,
			"Last Name":  row.LastName,
			"First Name": row.FirstName,
			"Email":      row.Email,
			"Contact":    row.ContactNumber,
			"Status":     string(row.Status),
			"Balance":    fmt.Sprintf("%.2f", row.Balance),
			"Payment":    string(row.PaymentStatus),
			"Remarks":    row.Remarks,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: data}
}
