package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/pkg/changefeed"
	"github.com/deniz/labstock/internal/pkg/email"
)

// SystemController handles health checks, the raw email relay and inbound
// webhooks from external integrations
type SystemController struct {
	emailService email.EmailService
	feed         *changefeed.Hub
	logger       zerolog.Logger
}

// NewSystemController creates a new SystemController
func NewSystemController(emailService email.EmailService, feed *changefeed.Hub, logger zerolog.Logger) *SystemController {
	return &SystemController{
		emailService: emailService,
		feed:         feed,
		logger:       logger,
	}
}

// Ping is a liveness check
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (c *SystemController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// SendEmail relays a raw HTML email through the configured SMTP account
// @Summary Send email
// @Description Sends an HTML email; returns 500 when delivery fails
// @Tags system
// @Accept json
// @Produce json
// @Param request body dto.SendEmailRequest true "Email content"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 500 {object} dto.ErrorResponse "Delivery failed"
// @Router /send-email [post]
func (c *SystemController) SendEmail(ctx *gin.Context) {
	var req dto.SendEmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.emailService.SendHTML(req.To, req.Subject, req.HTML); err != nil {
		c.logger.Error().Err(err).Str("to", req.To).Msg("Email relay failed")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "Failed to send email")
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Email sent"}))
}

// Webhook ingests an external change event and re-broadcasts it on the
// change feed
// @Summary Receive webhook
// @Description Accepts {type, table, record} events from external integrations and forwards them to feed subscribers
// @Tags system
// @Accept json
// @Produce json
// @Param source path string true "Event source identifier"
// @Param request body dto.WebhookEvent true "Change event"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 500 {object} dto.ErrorResponse "Malformed event"
// @Router /webhooks/{source} [post]
func (c *SystemController) Webhook(ctx *gin.Context) {
	source := ctx.Param("source")

	var event dto.WebhookEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		c.logger.Error().Err(err).Str("source", source).Msg("Malformed webhook event")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Malformed webhook event")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
		return
	}

	c.feed.Publish(changefeed.Change{
		Op:     changefeed.Op(event.Type),
		Table:  event.Table,
		Record: event.Record,
	})

	c.logger.Info().Str("source", source).Str("table", event.Table).Str("type", event.Type).Msg("Webhook event forwarded")
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Event accepted"}))
}
