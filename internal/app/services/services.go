package services

import (
	"context"
	"time"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/repositories"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

// Store interfaces decouple services from the pgx-backed repositories so the
// lifecycle logic can be exercised against in-memory implementations.

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByRole(ctx context.Context, role models.RoleType) ([]*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// TokenStore persists refresh tokens
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

// ComponentStore persists components. UpdateComponent must recompute
// availability against outstanding loans atomically.
type ComponentStore interface {
	CreateComponent(ctx context.Context, component *models.Component) (int64, error)
	GetComponentByID(ctx context.Context, id int64) (*models.Component, error)
	GetAllComponents(ctx context.Context) ([]*models.Component, error)
	UpdateComponent(ctx context.Context, component *models.Component) (*models.Component, error)
	DeleteComponent(ctx context.Context, id int64) error
}

// RequestStore persists requests. The transition methods commit the status
// change and the matching stock movement in one transaction.
type RequestStore interface {
	CreateRequest(ctx context.Context, request *models.Request) (int64, error)
	GetRequestByID(ctx context.Context, id int64) (*models.Request, error)
	ListRequests(ctx context.Context, filter repositories.RequestFilter) ([]*models.Request, error)
	ListRequestsDetailed(ctx context.Context) ([]*models.Request, error)
	ApproveRequest(ctx context.Context, id int64) (*models.Request, error)
	RejectRequest(ctx context.Context, id int64) (*models.Request, error)
	ReturnRequest(ctx context.Context, id int64) (*models.Request, error)
}

// ChangeFeed receives advisory change notifications after commits
type ChangeFeed interface {
	Publish(change changefeed.Change)
}
