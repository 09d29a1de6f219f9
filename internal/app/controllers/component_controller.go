package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/app/services"
	"github.com/deniz/labstock/internal/middleware"
)

// ComponentController handles component catalog operations
type ComponentController struct {
	componentService *services.ComponentService
	logger           zerolog.Logger
}

// NewComponentController creates a new ComponentController
func NewComponentController(componentService *services.ComponentService, logger zerolog.Logger) *ComponentController {
	return &ComponentController{
		componentService: componentService,
		logger:           logger,
	}
}

// parseIDParam reads the :id path parameter
func parseIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid ID parameter")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// ListComponents lists the component catalog
// @Summary List components
// @Description Returns every component with its total and available quantities
// @Tags components
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Component}
// @Router /components [get]
func (c *ComponentController) ListComponents(ctx *gin.Context) {
	components, err := c.componentService.ListComponents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(components))
}

// GetComponent returns a single component
// @Summary Get component
// @Tags components
// @Produce json
// @Security BearerAuth
// @Param id path int true "Component ID"
// @Success 200 {object} dto.APIResponse{data=models.Component}
// @Failure 404 {object} dto.ErrorResponse "Component not found"
// @Router /components/{id} [get]
func (c *ComponentController) GetComponent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	component, err := c.componentService.GetComponent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(component))
}

// CreateComponent adds a component to the catalog
// @Summary Create component
// @Description Adds a component; only mentors may call this
// @Tags components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateComponentRequest true "Component information"
// @Success 201 {object} dto.APIResponse{data=models.Component}
// @Failure 403 {object} dto.ErrorResponse "Mentor role required"
// @Router /components [post]
func (c *ComponentController) CreateComponent(ctx *gin.Context) {
	var req dto.CreateComponentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	component, err := c.componentService.CreateComponent(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Error().Err(err).Str("name", req.Name).Msg("Failed to create component")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(component))
}

// UpdateComponent edits a component
// @Summary Update component
// @Description Edits a component; changing the total recomputes availability against outstanding loans
// @Tags components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Component ID"
// @Param request body dto.UpdateComponentRequest true "Component information"
// @Success 200 {object} dto.APIResponse{data=models.Component}
// @Failure 400 {object} dto.ErrorResponse "New total below outstanding loans"
// @Failure 404 {object} dto.ErrorResponse "Component not found"
// @Router /components/{id} [put]
func (c *ComponentController) UpdateComponent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req dto.UpdateComponentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	component, err := c.componentService.UpdateComponent(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(component))
}

// DeleteComponent removes a component
// @Summary Delete component
// @Description Removes a component; fails while units are on loan
// @Tags components
// @Produce json
// @Security BearerAuth
// @Param id path int true "Component ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 404 {object} dto.ErrorResponse "Component not found"
// @Failure 409 {object} dto.ErrorResponse "Component has outstanding loans"
// @Router /components/{id} [delete]
func (c *ComponentController) DeleteComponent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if err := c.componentService.DeleteComponent(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Component deleted"}))
}
