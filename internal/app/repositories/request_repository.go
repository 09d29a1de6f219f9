package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/db"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/logger"
)

// RequestRepository handles borrow request database operations. The status
// transitions that carry a ledger side effect (approve, return) run the
// status update and the stock update in one transaction; either both commit
// or neither does.
type RequestRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const requestColumns = "id, student_id, component_id, quantity, status, reason, request_date, return_date, created_at, updated_at"

func scanRequest(row pgx.Row) (*models.Request, error) {
	req := &models.Request{}
	err := row.Scan(&req.ID, &req.StudentID, &req.ComponentID, &req.Quantity, &req.Status,
		&req.Reason, &req.RequestDate, &req.ReturnDate, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateRequest inserts a new request in the Requested state
func (r *RequestRepository) CreateRequest(ctx context.Context, request *models.Request) (int64, error) {
	sql, args, err := r.sb.Insert("requests").
		Columns("student_id", "component_id", "quantity", "status", "reason", "return_date").
		Values(request.StudentID, request.ComponentID, request.Quantity, models.StatusRequested, request.Reason, request.ReturnDate).
		Suffix("RETURNING id, request_date").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create request query: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&id, &request.RequestDate)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing create request query")
		return 0, storeError("error creating request", err)
	}

	return id, nil
}

// GetRequestByID retrieves a request by ID
func (r *RequestRepository) GetRequestByID(ctx context.Context, id int64) (*models.Request, error) {
	sql, args, err := r.sb.Select(requestColumns).
		From("requests").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get request query: %w", err)
	}

	request, err := scanRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error scanning request row")
		return nil, storeError("error getting request by ID", err)
	}

	return request, nil
}

// RequestFilter narrows ListRequests; nil fields mean no filtering
type RequestFilter struct {
	StudentID *int64
	Status    *models.RequestStatus
}

// ListRequests retrieves requests matching the filter, newest first
func (r *RequestRepository) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.Request, error) {
	builder := r.sb.Select(requestColumns).
		From("requests").
		OrderBy("request_date DESC")

	if filter.StudentID != nil {
		builder = builder.Where(squirrel.Eq{"student_id": *filter.StudentID})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": *filter.Status})
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list requests query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list requests query")
		return nil, storeError("error querying requests", err)
	}
	defer rows.Close()

	requests := []*models.Request{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, storeError("error scanning request row", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("error iterating request rows", err)
	}

	return requests, nil
}

// ListRequestsDetailed retrieves all requests joined with student and
// component data, newest first. Feeds the usage report.
func (r *RequestRepository) ListRequestsDetailed(ctx context.Context) ([]*models.Request, error) {
	sql, args, err := r.sb.Select(
		"r.id", "r.student_id", "r.component_id", "r.quantity", "r.status",
		"r.reason", "r.request_date", "r.return_date", "r.created_at", "r.updated_at",
		"u.name", "u.email",
		"c.name", "c.total_quantity", "c.available_quantity").
		From("requests r").
		Join("users u ON u.id = r.student_id").
		Join("components c ON c.id = r.component_id").
		OrderBy("r.request_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build detailed requests query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing detailed requests query")
		return nil, storeError("error querying detailed requests", err)
	}
	defer rows.Close()

	requests := []*models.Request{}
	for rows.Next() {
		req := &models.Request{
			Student:   &models.User{},
			Component: &models.Component{},
		}
		err := rows.Scan(&req.ID, &req.StudentID, &req.ComponentID, &req.Quantity, &req.Status,
			&req.Reason, &req.RequestDate, &req.ReturnDate, &req.CreatedAt, &req.UpdatedAt,
			&req.Student.Name, &req.Student.Email,
			&req.Component.Name, &req.Component.TotalQuantity, &req.Component.AvailableQuantity)
		if err != nil {
			return nil, storeError("error scanning detailed request row", err)
		}
		req.Student.ID = req.StudentID
		req.Component.ID = req.ComponentID
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("error iterating detailed request rows", err)
	}

	return requests, nil
}

// lockRequest loads a request row FOR UPDATE so the status precondition
// below is evaluated under the lock, not against a stale read.
func lockRequest(ctx context.Context, tx pgx.Tx, id int64) (*models.Request, error) {
	request, err := scanRequest(tx.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, storeError("error locking request row", err)
	}
	return request, nil
}

// ApproveRequest moves a Requested request to Approved and reserves stock
// for it, all in one transaction. Returns ErrInsufficientStock and leaves
// the request untouched when availability was concurrently exhausted.
func (r *RequestRepository) ApproveRequest(ctx context.Context, id int64) (*models.Request, error) {
	var approved *models.Request

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		request, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}

		if !request.Status.CanTransitionTo(models.StatusApproved) {
			return fmt.Errorf("%w: cannot approve a %s request", apperrors.ErrInvalidTransition, request.Status)
		}

		if err := reserveStock(ctx, tx, request.ComponentID, request.Quantity); err != nil {
			return err
		}

		approved, err = scanRequest(tx.QueryRow(ctx,
			"UPDATE requests SET status = $1, updated_at = now() WHERE id = $2 RETURNING "+requestColumns,
			models.StatusApproved, id))
		if err != nil {
			return storeError("error updating request status", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return approved, nil
}

// RejectRequest moves a Requested request to Rejected. No ledger effect.
func (r *RequestRepository) RejectRequest(ctx context.Context, id int64) (*models.Request, error) {
	var rejected *models.Request

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		request, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}

		if !request.Status.CanTransitionTo(models.StatusRejected) {
			return fmt.Errorf("%w: cannot reject a %s request", apperrors.ErrInvalidTransition, request.Status)
		}

		rejected, err = scanRequest(tx.QueryRow(ctx,
			"UPDATE requests SET status = $1, updated_at = now() WHERE id = $2 RETURNING "+requestColumns,
			models.StatusRejected, id))
		if err != nil {
			return storeError("error updating request status", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rejected, nil
}

// ReturnRequest moves an Approved request to Returned, stamps return_date
// and releases the reserved stock in the same transaction. The release is
// capped at the component total, and the Approved precondition makes a
// second return of the same request fail before touching the ledger.
func (r *RequestRepository) ReturnRequest(ctx context.Context, id int64) (*models.Request, error) {
	var returned *models.Request

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		request, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}

		if !request.Status.CanTransitionTo(models.StatusReturned) {
			return fmt.Errorf("%w: cannot return a %s request", apperrors.ErrInvalidTransition, request.Status)
		}

		if err := releaseStock(ctx, tx, request.ComponentID, request.Quantity); err != nil {
			return err
		}

		returned, err = scanRequest(tx.QueryRow(ctx,
			"UPDATE requests SET status = $1, return_date = now(), updated_at = now() WHERE id = $2 RETURNING "+requestColumns,
			models.StatusReturned, id))
		if err != nil {
			return storeError("error updating request status", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return returned, nil
}
