package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/app/repositories"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

// RequestService drives the borrow request lifecycle. Status changes and the
// matching stock movements are committed atomically by the store; this
// service layers authorization, notifications and the change feed on top.
type RequestService struct {
	requestStore   RequestStore
	componentStore ComponentStore
	userStore      UserStore
	notifier       *Notifier
	feed           ChangeFeed
	logger         zerolog.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestStore RequestStore,
	componentStore ComponentStore,
	userStore UserStore,
	notifier *Notifier,
	feed ChangeFeed,
	logger zerolog.Logger,
) *RequestService {
	return &RequestService{
		requestStore:   requestStore,
		componentStore: componentStore,
		userStore:      userStore,
		notifier:       notifier,
		feed:           feed,
		logger:         logger,
	}
}

// CreateRequest submits a borrow request on behalf of a student. The
// availability check here is advisory only; stock is not reserved until a
// mentor approves, and approval re-checks availability atomically.
func (s *RequestService) CreateRequest(ctx context.Context, studentID int64, req *dto.CreateRequest) (*models.Request, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidQuantity, "quantity must be positive")
	}

	student, err := s.userStore.GetUserByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	component, err := s.componentStore.GetComponentByID(ctx, req.ComponentID)
	if err != nil {
		return nil, err
	}

	if req.Quantity > component.AvailableQuantity {
		return nil, fmt.Errorf("%w: requested %d, available %d",
			apperrors.ErrInsufficientStock, req.Quantity, component.AvailableQuantity)
	}

	request := &models.Request{
		StudentID:   studentID,
		ComponentID: req.ComponentID,
		Quantity:    req.Quantity,
		Status:      models.StatusRequested,
		Reason:      req.Reason,
		ReturnDate:  req.ReturnDate,
	}

	id, err := s.requestStore.CreateRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	request.ID = id

	s.logger.Info().
		Int64("requestID", id).
		Int64("studentID", studentID).
		Int64("componentID", req.ComponentID).
		Int("quantity", req.Quantity).
		Msg("Request created")

	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpInsert,
		Table:  changefeed.TableRequests,
		Record: request,
	})

	mentors, err := s.userStore.GetUsersByRole(ctx, models.RoleMentor)
	if err != nil {
		// Notification fan-out never fails the create
		s.logger.Error().Err(err).Msg("Failed to load mentors for notification")
	} else {
		s.notifier.NotifyRequestReceived(mentors, student, component, request)
	}

	return request, nil
}

// GetRequest retrieves a single request. Students can only see their own
// requests; mentors can see all of them.
func (s *RequestService) GetRequest(ctx context.Context, id int64, callerID int64, callerRole string) (*models.Request, error) {
	request, err := s.requestStore.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole != string(models.RoleMentor) && request.StudentID != callerID {
		return nil, apperrors.ErrRequestNotFound
	}

	return request, nil
}

// ListRequests lists requests, scoped to the caller's own when the caller is
// a student. A status filter is applied when given.
func (s *RequestService) ListRequests(ctx context.Context, callerID int64, callerRole string, status string) ([]*models.Request, error) {
	filter := repositories.RequestFilter{}

	if callerRole != string(models.RoleMentor) {
		filter.StudentID = &callerID
	}
	if status != "" {
		st := models.RequestStatus(status)
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, status)
		}
		filter.Status = &st
	}

	return s.requestStore.ListRequests(ctx, filter)
}

// ApproveRequest moves a request to Approved and reserves stock in the same
// transaction. The approving mentor's name goes into the student email.
func (s *RequestService) ApproveRequest(ctx context.Context, id int64, mentorID int64) (*models.Request, error) {
	request, err := s.requestStore.ApproveRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("requestID", id).Int64("mentorID", mentorID).Msg("Request approved")
	s.publishTransition(ctx, request)
	s.notifyStudent(ctx, request, mentorID, models.StatusApproved)

	return request, nil
}

// RejectRequest moves a request to Rejected. No stock is touched because
// none was ever reserved.
func (s *RequestService) RejectRequest(ctx context.Context, id int64, mentorID int64) (*models.Request, error) {
	request, err := s.requestStore.RejectRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("requestID", id).Int64("mentorID", mentorID).Msg("Request rejected")
	s.publishTransition(ctx, request)
	s.notifyStudent(ctx, request, mentorID, models.StatusRejected)

	return request, nil
}

// ReturnRequest moves an approved request to Returned and releases the
// reserved stock in the same transaction. Students can only return their own
// requests.
func (s *RequestService) ReturnRequest(ctx context.Context, id int64, callerID int64, callerRole string) (*models.Request, error) {
	if callerRole != string(models.RoleMentor) {
		existing, err := s.requestStore.GetRequestByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.StudentID != callerID {
			return nil, apperrors.ErrRequestNotFound
		}
	}

	request, err := s.requestStore.ReturnRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("requestID", id).Msg("Request returned")
	s.publishTransition(ctx, request)
	s.notifyStudent(ctx, request, 0, models.StatusReturned)

	return request, nil
}

// publishTransition emits the request change plus the component row it
// touched, so catalog watchers see availability move without polling
func (s *RequestService) publishTransition(ctx context.Context, request *models.Request) {
	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpUpdate,
		Table:  changefeed.TableRequests,
		Record: request,
	})

	component, err := s.componentStore.GetComponentByID(ctx, request.ComponentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("componentID", request.ComponentID).Msg("Failed to load component for change feed")
		return
	}
	s.feed.Publish(changefeed.Change{
		Op:     changefeed.OpUpdate,
		Table:  changefeed.TableComponents,
		Record: component,
	})
}

// notifyStudent sends the status email matching the transition that just
// committed. Failures are logged by the notifier, never surfaced.
func (s *RequestService) notifyStudent(ctx context.Context, request *models.Request, mentorID int64, status models.RequestStatus) {
	student, err := s.userStore.GetUserByID(ctx, request.StudentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("studentID", request.StudentID).Msg("Failed to load student for notification")
		return
	}

	component, err := s.componentStore.GetComponentByID(ctx, request.ComponentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("componentID", request.ComponentID).Msg("Failed to load component for notification")
		return
	}

	mentorName := ""
	if mentorID > 0 {
		if mentor, err := s.userStore.GetUserByID(ctx, mentorID); err == nil {
			mentorName = mentor.Name
		}
	}

	switch status {
	case models.StatusApproved:
		s.notifier.NotifyRequestApproved(student, component, request, mentorName)
	case models.StatusRejected:
		s.notifier.NotifyRequestRejected(student, component, request, mentorName)
	case models.StatusReturned:
		s.notifier.NotifyRequestReturned(student, component, request)
	}
}
