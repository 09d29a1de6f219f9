package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/services"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

// stubComponentStore backs the controller tests with just enough catalog
// behavior; lifecycle semantics are covered by the service tests.
type stubComponentStore struct {
	components map[int64]*models.Component
	nextID     int64
}

func newStubComponentStore() *stubComponentStore {
	return &stubComponentStore{components: make(map[int64]*models.Component)}
}

func (s *stubComponentStore) CreateComponent(_ context.Context, component *models.Component) (int64, error) {
	s.nextID++
	cp := *component
	cp.ID = s.nextID
	s.components[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubComponentStore) GetComponentByID(_ context.Context, id int64) (*models.Component, error) {
	c, ok := s.components[id]
	if !ok {
		return nil, apperrors.ErrComponentNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *stubComponentStore) GetAllComponents(_ context.Context) ([]*models.Component, error) {
	out := make([]*models.Component, 0, len(s.components))
	for _, c := range s.components {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubComponentStore) UpdateComponent(_ context.Context, component *models.Component) (*models.Component, error) {
	existing, ok := s.components[component.ID]
	if !ok {
		return nil, apperrors.ErrComponentNotFound
	}
	existing.Name = component.Name
	existing.Description = component.Description
	existing.TotalQuantity = component.TotalQuantity
	existing.AvailableQuantity = component.TotalQuantity
	cp := *existing
	return &cp, nil
}

func (s *stubComponentStore) DeleteComponent(_ context.Context, id int64) error {
	if _, ok := s.components[id]; !ok {
		return apperrors.ErrComponentNotFound
	}
	delete(s.components, id)
	return nil
}

type discardFeed struct{}

func (discardFeed) Publish(changefeed.Change) {}

func setupComponentRouter(store *stubComponentStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := services.NewComponentService(store, discardFeed{}, zerolog.Nop())
	controller := NewComponentController(service, zerolog.Nop())

	router := gin.New()
	router.POST("/components", controller.CreateComponent)
	router.GET("/components/:id", controller.GetComponent)
	return router
}

func postComponent(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/components", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateComponentZeroTotal(t *testing.T) {
	router := setupComponentRouter(newStubComponentStore())

	w := postComponent(t, router, `{"name":"Empty Bin","totalQuantity":0}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data models.Component `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Empty Bin", resp.Data.Name)
	assert.Equal(t, 0, resp.Data.TotalQuantity)
	assert.Equal(t, 0, resp.Data.AvailableQuantity)
}

func TestCreateComponentNegativeTotal(t *testing.T) {
	router := setupComponentRouter(newStubComponentStore())

	w := postComponent(t, router, `{"name":"Bad Bin","totalQuantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateComponentMissingName(t *testing.T) {
	router := setupComponentRouter(newStubComponentStore())

	w := postComponent(t, router, `{"totalQuantity":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetComponentNotFound(t *testing.T) {
	router := setupComponentRouter(newStubComponentStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/components/99", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
