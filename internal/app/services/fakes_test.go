package services

import (
	"context"
	"sync"
	"time"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/repositories"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/changefeed"
	"github.com/deniz/labstock/internal/pkg/email"
)

// memStore is an in-memory implementation of the store interfaces with the
// same conditional-update semantics as the Postgres repositories, so the
// lifecycle invariants can be exercised under real goroutine interleavings.
type memStore struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	components map[int64]*models.Component
	requests   map[int64]*models.Request
	tokens     map[string]*models.RefreshToken
	nextID     int64
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[int64]*models.User),
		components: make(map[int64]*models.Component),
		requests:   make(map[int64]*models.Request),
		tokens:     make(map[string]*models.RefreshToken),
	}
}

func (m *memStore) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

// --- UserStore ---

func (m *memStore) CreateUser(_ context.Context, user *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	id := m.nextSeq()
	cp := *user
	cp.ID = id
	m.users[id] = &cp
	return id, nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *memStore) GetUsersByRole(_ context.Context, role models.RoleType) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, u := range m.users {
		if u.RoleType == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// --- TokenStore ---

func (m *memStore) SaveRefreshToken(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = &models.RefreshToken{
		ID:        m.nextSeq(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *memStore) GetRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) RevokeRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m *memStore) DeleteExpiredTokens(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(time.Now()) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- ComponentStore ---

func (m *memStore) CreateComponent(_ context.Context, component *models.Component) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSeq()
	cp := *component
	cp.ID = id
	m.components[id] = &cp
	return id, nil
}

func (m *memStore) GetComponentByID(_ context.Context, id int64) (*models.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.components[id]
	if !ok {
		return nil, apperrors.ErrComponentNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetAllComponents(_ context.Context) ([]*models.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Component, 0, len(m.components))
	for _, c := range m.components {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) outstandingLocked(componentID int64) int {
	outstanding := 0
	for _, r := range m.requests {
		if r.ComponentID == componentID && r.Status == models.StatusApproved {
			outstanding += r.Quantity
		}
	}
	return outstanding
}

func (m *memStore) UpdateComponent(_ context.Context, component *models.Component) (*models.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.components[component.ID]
	if !ok {
		return nil, apperrors.ErrComponentNotFound
	}

	outstanding := m.outstandingLocked(component.ID)
	if component.TotalQuantity < outstanding {
		return nil, apperrors.ErrInvalidQuantity
	}

	existing.Name = component.Name
	existing.Description = component.Description
	existing.TotalQuantity = component.TotalQuantity
	existing.AvailableQuantity = component.TotalQuantity - outstanding
	cp := *existing
	return &cp, nil
}

func (m *memStore) DeleteComponent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[id]; !ok {
		return apperrors.ErrComponentNotFound
	}
	if m.outstandingLocked(id) > 0 {
		return apperrors.ErrComponentOnLoan
	}
	delete(m.components, id)
	return nil
}

// --- RequestStore ---

func (m *memStore) CreateRequest(_ context.Context, request *models.Request) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSeq()
	cp := *request
	cp.ID = id
	if cp.RequestDate.IsZero() {
		cp.RequestDate = time.Now()
	}
	m.requests[id] = &cp
	return id, nil
}

func (m *memStore) GetRequestByID(_ context.Context, id int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListRequests(_ context.Context, filter repositories.RequestFilter) ([]*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Request
	for _, r := range m.requests {
		if filter.StudentID != nil && r.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) ListRequestsDetailed(_ context.Context) ([]*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Request
	for _, r := range m.requests {
		cp := *r
		if u, ok := m.users[r.StudentID]; ok {
			ucp := *u
			cp.Student = &ucp
		}
		if c, ok := m.components[r.ComponentID]; ok {
			ccp := *c
			cp.Component = &ccp
		}
		out = append(out, &cp)
	}
	return out, nil
}

// ApproveRequest mirrors the transactional semantics of the SQL store: the
// status check and the conditional stock decrement happen under one lock.
func (m *memStore) ApproveRequest(_ context.Context, id int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	if !r.Status.CanTransitionTo(models.StatusApproved) {
		return nil, apperrors.ErrInvalidTransition
	}

	c, ok := m.components[r.ComponentID]
	if !ok {
		return nil, apperrors.ErrComponentNotFound
	}
	if c.AvailableQuantity < r.Quantity {
		return nil, apperrors.ErrInsufficientStock
	}

	c.AvailableQuantity -= r.Quantity
	r.Status = models.StatusApproved
	cp := *r
	return &cp, nil
}

func (m *memStore) RejectRequest(_ context.Context, id int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	if !r.Status.CanTransitionTo(models.StatusRejected) {
		return nil, apperrors.ErrInvalidTransition
	}

	r.Status = models.StatusRejected
	cp := *r
	return &cp, nil
}

func (m *memStore) ReturnRequest(_ context.Context, id int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	if !r.Status.CanTransitionTo(models.StatusReturned) {
		return nil, apperrors.ErrInvalidTransition
	}

	if c, ok := m.components[r.ComponentID]; ok {
		c.AvailableQuantity += r.Quantity
		if c.AvailableQuantity > c.TotalQuantity {
			c.AvailableQuantity = c.TotalQuantity
		}
	}

	now := time.Now()
	r.Status = models.StatusReturned
	r.ReturnDate = &now
	cp := *r
	return &cp, nil
}

// --- Feed and email fakes ---

// recordingFeed captures published changes for assertions
type recordingFeed struct {
	mu      sync.Mutex
	changes []changefeed.Change
}

func (f *recordingFeed) Publish(change changefeed.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
}

func (f *recordingFeed) byTable(table string) []changefeed.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []changefeed.Change
	for _, c := range f.changes {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// recordingEmail captures sent notifications for assertions
type recordingEmail struct {
	mu   sync.Mutex
	sent []sentEmail
}

type sentEmail struct {
	Kind   string
	To     string
	Fields email.TemplateFields
}

func (e *recordingEmail) record(kind, to string, fields email.TemplateFields) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentEmail{Kind: kind, To: to, Fields: fields})
}

func (e *recordingEmail) all() []sentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sentEmail, len(e.sent))
	copy(out, e.sent)
	return out
}

func (e *recordingEmail) SendRequestReceived(to string, fields email.TemplateFields) error {
	e.record("received", to, fields)
	return nil
}

func (e *recordingEmail) SendRequestApproved(to string, fields email.TemplateFields) error {
	e.record("approved", to, fields)
	return nil
}

func (e *recordingEmail) SendRequestRejected(to string, fields email.TemplateFields) error {
	e.record("rejected", to, fields)
	return nil
}

func (e *recordingEmail) SendRequestReturned(to string, fields email.TemplateFields) error {
	e.record("returned", to, fields)
	return nil
}

func (e *recordingEmail) SendHTML(to, subject, _ string) error {
	e.record("raw:"+subject, to, email.TemplateFields{})
	return nil
}
