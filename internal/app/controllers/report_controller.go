package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/app/services"
	"github.com/deniz/labstock/internal/middleware"
)

// ReportController handles mentor-facing reports
type ReportController struct {
	reportService *services.ReportService
	logger        zerolog.Logger
}

// NewReportController creates a new ReportController
func NewReportController(reportService *services.ReportService, logger zerolog.Logger) *ReportController {
	return &ReportController{
		reportService: reportService,
		logger:        logger,
	}
}

// UsageReport builds the component usage report
// @Summary Usage report
// @Description Joins every request with its student and component and aggregates counts per status; only mentors may call this
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UsageReport}
// @Failure 403 {object} dto.ErrorResponse "Mentor role required"
// @Router /reports/usage [get]
func (c *ReportController) UsageReport(ctx *gin.Context) {
	report, err := c.reportService.UsageReport(ctx.Request.Context())
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build usage report")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(report))
}
