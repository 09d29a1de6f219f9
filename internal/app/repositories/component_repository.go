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
	"github.com/deniz/labstock/internal/pkg/dberrors"
	"github.com/deniz/labstock/internal/pkg/logger"
)

// ComponentRepository handles the component table and the stock ledger.
// All stock arithmetic happens inside the store as conditional updates so
// concurrent writers can never produce a lost update.
type ComponentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewComponentRepository creates a new ComponentRepository
func NewComponentRepository(db *pgxpool.Pool) *ComponentRepository {
	return &ComponentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const componentColumns = "id, name, description, total_quantity, available_quantity, created_at, updated_at"

func scanComponent(row pgx.Row) (*models.Component, error) {
	c := &models.Component{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.TotalQuantity, &c.AvailableQuantity, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateComponent inserts a new component with available = total
func (r *ComponentRepository) CreateComponent(ctx context.Context, component *models.Component) (int64, error) {
	sql, args, err := r.sb.Insert("components").
		Columns("name", "description", "total_quantity", "available_quantity").
		Values(component.Name, component.Description, component.TotalQuantity, component.AvailableQuantity).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create component query: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&id)
	if err != nil {
		if dberrors.IsDuplicateKeyError(err) {
			return 0, apperrors.ErrResourceAlreadyExists
		}
		logger.Error().Err(err).Msg("Error executing create component query")
		return 0, storeError("error creating component", err)
	}

	return id, nil
}

// GetComponentByID retrieves a component by ID
func (r *ComponentRepository) GetComponentByID(ctx context.Context, id int64) (*models.Component, error) {
	sql, args, err := r.sb.Select(componentColumns).
		From("components").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get component query: %w", err)
	}

	component, err := scanComponent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrComponentNotFound
		}
		logger.Error().Err(err).Int64("componentID", id).Msg("Error scanning component row")
		return nil, storeError("error getting component by ID", err)
	}

	return component, nil
}

// GetAllComponents retrieves the full catalog ordered by name
func (r *ComponentRepository) GetAllComponents(ctx context.Context) ([]*models.Component, error) {
	sql, args, err := r.sb.Select(componentColumns).
		From("components").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get all components query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing get all components query")
		return nil, storeError("error querying components", err)
	}
	defer rows.Close()

	components := []*models.Component{}
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, storeError("error scanning component row", err)
		}
		components = append(components, component)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("error iterating component rows", err)
	}

	return components, nil
}

// UpdateComponent edits a component. When the total changes, availability is
// recomputed as total minus outstanding Approved units in the same
// transaction; the row is locked so concurrent approvals cannot interleave.
func (r *ComponentRepository) UpdateComponent(ctx context.Context, component *models.Component) (*models.Component, error) {
	var updated *models.Component

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		// Lock the row so concurrent approvals cannot interleave with the
		// outstanding-units computation below.
		var lockedID int64
		err := tx.QueryRow(ctx, "SELECT id FROM components WHERE id = $1 FOR UPDATE", component.ID).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrComponentNotFound
			}
			return storeError("error locking component row", err)
		}

		outstanding, err := outstandingLoanedUnits(ctx, tx, component.ID)
		if err != nil {
			return err
		}

		if component.TotalQuantity < outstanding {
			return fmt.Errorf("%w: new total %d is below %d outstanding loaned units",
				apperrors.ErrInvalidQuantity, component.TotalQuantity, outstanding)
		}

		available := component.TotalQuantity - outstanding

		row := tx.QueryRow(ctx,
			`UPDATE components
			 SET name = $1, description = $2, total_quantity = $3, available_quantity = $4, updated_at = now()
			 WHERE id = $5
			 RETURNING `+componentColumns,
			component.Name, component.Description, component.TotalQuantity, available, component.ID)

		updated, err = scanComponent(row)
		if err != nil {
			if dberrors.IsDuplicateKeyError(err) {
				return apperrors.ErrResourceAlreadyExists
			}
			return storeError("error updating component", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteComponent removes a component unless units are still on loan
func (r *ComponentRepository) DeleteComponent(ctx context.Context, id int64) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		outstanding, err := outstandingLoanedUnits(ctx, tx, id)
		if err != nil {
			return err
		}
		if outstanding > 0 {
			return apperrors.ErrComponentOnLoan
		}

		cmdTag, err := tx.Exec(ctx, "DELETE FROM components WHERE id = $1", id)
		if err != nil {
			logger.Error().Err(err).Int64("componentID", id).Msg("Error executing delete component query")
			return storeError("error deleting component", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrComponentNotFound
		}
		return nil
	})
}

// outstandingLoanedUnits sums the quantities of Approved requests for a component
func outstandingLoanedUnits(ctx context.Context, tx pgx.Tx, componentID int64) (int, error) {
	var outstanding int
	err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM requests WHERE component_id = $1 AND status = $2",
		componentID, models.StatusApproved).Scan(&outstanding)
	if err != nil {
		return 0, storeError("error summing outstanding loans", err)
	}
	return outstanding, nil
}

// reserveStock decrements availability if and only if enough stock remains.
// The condition is evaluated atomically by the store; zero rows affected on
// an existing component means the reservation lost the race.
func reserveStock(ctx context.Context, tx pgx.Tx, componentID int64, qty int) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE components
		 SET available_quantity = available_quantity - $1, updated_at = now()
		 WHERE id = $2 AND available_quantity >= $1`,
		qty, componentID)
	if err != nil {
		return storeError("error reserving stock", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM components WHERE id = $1)", componentID).Scan(&exists); err != nil {
			return storeError("error checking component existence", err)
		}
		if !exists {
			return apperrors.ErrComponentNotFound
		}
		return apperrors.ErrInsufficientStock
	}

	return nil
}

// releaseStock returns units to the pool, capped at the total so a double
// release can never push availability above capacity.
func releaseStock(ctx context.Context, tx pgx.Tx, componentID int64, qty int) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE components
		 SET available_quantity = LEAST(available_quantity + $1, total_quantity), updated_at = now()
		 WHERE id = $2`,
		qty, componentID)
	if err != nil {
		return storeError("error releasing stock", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrComponentNotFound
	}

	return nil
}
