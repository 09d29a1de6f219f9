package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/app/services"
	"github.com/deniz/labstock/internal/middleware"
)

// RequestController handles borrow request lifecycle operations
type RequestController struct {
	requestService *services.RequestService
	logger         zerolog.Logger
}

// NewRequestController creates a new RequestController
func NewRequestController(requestService *services.RequestService, logger zerolog.Logger) *RequestController {
	return &RequestController{
		requestService: requestService,
		logger:         logger,
	}
}

// CreateRequest submits a borrow request
// @Summary Create borrow request
// @Description Submits a borrow request for the authenticated student; mentors are notified by email
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateRequest true "Request information"
// @Success 201 {object} dto.APIResponse{data=models.Request}
// @Failure 400 {object} dto.ErrorResponse "Invalid quantity"
// @Failure 409 {object} dto.ErrorResponse "Insufficient stock"
// @Router /requests [post]
func (c *RequestController) CreateRequest(ctx *gin.Context) {
	var req dto.CreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	studentID := ctx.GetInt64("userID")

	request, err := c.requestService.CreateRequest(ctx.Request.Context(), studentID, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("studentID", studentID).Msg("Failed to create request")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(request))
}

// ListRequests lists borrow requests
// @Summary List requests
// @Description Students see their own requests; mentors see all. An optional status filter narrows the result.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (Requested, Approved, Rejected, Returned)"
// @Success 200 {object} dto.APIResponse{data=[]models.Request}
// @Router /requests [get]
func (c *RequestController) ListRequests(ctx *gin.Context) {
	callerID := ctx.GetInt64("userID")
	callerRole := ctx.GetString("roleType")

	requests, err := c.requestService.ListRequests(ctx.Request.Context(), callerID, callerRole, ctx.Query("status"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(requests))
}

// GetRequest returns a single request
// @Summary Get request
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request}
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Router /requests/{id} [get]
func (c *RequestController) GetRequest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	callerID := ctx.GetInt64("userID")
	callerRole := ctx.GetString("roleType")

	request, err := c.requestService.GetRequest(ctx.Request.Context(), id, callerID, callerRole)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request))
}

// ApproveRequest approves a pending request
// @Summary Approve request
// @Description Moves a request to Approved and reserves stock atomically; only mentors may call this
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request}
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition or insufficient stock"
// @Router /requests/{id}/approve [post]
func (c *RequestController) ApproveRequest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	mentorID := ctx.GetInt64("userID")

	request, err := c.requestService.ApproveRequest(ctx.Request.Context(), id, mentorID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("requestID", id).Msg("Failed to approve request")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request))
}

// RejectRequest rejects a pending request
// @Summary Reject request
// @Description Moves a request to Rejected; only mentors may call this
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request}
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition"
// @Router /requests/{id}/reject [post]
func (c *RequestController) RejectRequest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	mentorID := ctx.GetInt64("userID")

	request, err := c.requestService.RejectRequest(ctx.Request.Context(), id, mentorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request))
}

// ReturnRequest marks an approved request as returned
// @Summary Return request
// @Description Moves an approved request to Returned and releases the reserved stock atomically
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request}
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition"
// @Router /requests/{id}/return [post]
func (c *RequestController) ReturnRequest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	callerID := ctx.GetInt64("userID")
	callerRole := ctx.GetString("roleType")

	request, err := c.requestService.ReturnRequest(ctx.Request.Context(), id, callerID, callerRole)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request))
}
