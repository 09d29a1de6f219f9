package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

// ComponentService manages the lendable component catalog
type ComponentService struct {
	componentStore ComponentStore
	feed           ChangeFeed
	logger         zerolog.Logger
}

// NewComponentService creates a new ComponentService
func NewComponentService(componentStore ComponentStore, feed ChangeFeed, logger zerolog.Logger) *ComponentService {
	return &ComponentService{
		componentStore: componentStore,
		feed:           feed,
		logger:         logger,
	}
}

// CreateComponent adds a component to the catalog. A new component starts
// with its full stock available.
func (s *ComponentService) CreateComponent(ctx context.Context, req *dto.CreateComponentRequest) (*models.Component, error) {
	if req.TotalQuantity < 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidQuantity, "total quantity cannot be negative")
	}

	component := &models.Component{
		Name:              req.Name,
		Description:       req.Description,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
	}
	if err := component.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidationFailed, err.Error())
	}

	id, err := s.componentStore.CreateComponent(ctx, component)
	if err != nil {
		return nil, err
	}
	component.ID = id

	s.logger.Info().Int64("componentID", id).Str("name", component.Name).Msg("Component created")
	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpInsert,
		Table:  changefeed.TableComponents,
		Record: component,
	})

	return component, nil
}

// GetComponent retrieves a single component
func (s *ComponentService) GetComponent(ctx context.Context, id int64) (*models.Component, error) {
	return s.componentStore.GetComponentByID(ctx, id)
}

// ListComponents retrieves the full catalog
func (s *ComponentService) ListComponents(ctx context.Context) ([]*models.Component, error) {
	return s.componentStore.GetAllComponents(ctx)
}

// UpdateComponent edits a component. When the total changes, availability is
// recomputed as the new total minus outstanding loaned units; shrinking the
// total below the outstanding amount is rejected.
func (s *ComponentService) UpdateComponent(ctx context.Context, id int64, req *dto.UpdateComponentRequest) (*models.Component, error) {
	if req.TotalQuantity < 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidQuantity, "total quantity cannot be negative")
	}

	component := &models.Component{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		TotalQuantity: req.TotalQuantity,
	}

	updated, err := s.componentStore.UpdateComponent(ctx, component)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("componentID", id).
		Int("totalQuantity", updated.TotalQuantity).
		Int("availableQuantity", updated.AvailableQuantity).
		Msg("Component updated")
	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpUpdate,
		Table:  changefeed.TableComponents,
		Record: updated,
	})

	return updated, nil
}

// DeleteComponent removes a component. Components with outstanding approved
// loans cannot be deleted.
func (s *ComponentService) DeleteComponent(ctx context.Context, id int64) error {
	if err := s.componentStore.DeleteComponent(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("componentID", id).Msg("Component deleted")
	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpDelete,
		Table:  changefeed.TableComponents,
		Record: map[string]int64{"id": id},
	})

	return nil
}
