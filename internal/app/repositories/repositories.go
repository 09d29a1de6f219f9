package repositories

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/dberrors"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository      *UserRepository
	TokenRepository     *TokenRepository
	ComponentRepository *ComponentRepository
	RequestRepository   *RequestRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:      NewUserRepository(db),
		TokenRepository:     NewTokenRepository(db),
		ComponentRepository: NewComponentRepository(db),
		RequestRepository:   NewRequestRepository(db),
	}
}

// storeError wraps a database execution error. Connectivity failures become
// ErrStoreUnavailable so handlers answer 503 and the caller can retry;
// everything else keeps the original error in the chain.
func storeError(msg string, err error) error {
	if dberrors.IsConnectionError(err) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreUnavailable, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
