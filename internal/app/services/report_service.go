package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models/dto"
)

// ReportService builds mentor-facing usage reports
type ReportService struct {
	requestStore RequestStore
	logger       zerolog.Logger
}

// NewReportService creates a new ReportService
func NewReportService(requestStore RequestStore, logger zerolog.Logger) *ReportService {
	return &ReportService{
		requestStore: requestStore,
		logger:       logger,
	}
}

// UsageReport joins every request with its student and component and
// aggregates counts per status
func (s *ReportService) UsageReport(ctx context.Context) (*dto.UsageReport, error) {
	requests, err := s.requestStore.ListRequestsDetailed(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.UsageReport{
		Rows:        make([]dto.UsageRow, 0, len(requests)),
		StatusCount: make(map[string]int),
		GeneratedAt: time.Now(),
	}

	for _, req := range requests {
		row := dto.UsageRow{
			RequestID:   req.ID,
			Quantity:    req.Quantity,
			Status:      string(req.Status),
			RequestDate: req.RequestDate,
			ReturnDate:  req.ReturnDate,
		}
		if req.Student != nil {
			row.StudentName = req.Student.Name
			row.StudentEmail = req.Student.Email
		}
		if req.Component != nil {
			row.ComponentName = req.Component.Name
		}

		report.Rows = append(report.Rows, row)
		report.StatusCount[string(req.Status)]++
	}

	return report, nil
}
