package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/deniz/labstock/internal/pkg/apperrors"
)

func responseFor(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	HandleAPIError(c, err)
	return w
}

func TestHandleAPIErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"request not found", apperrors.ErrRequestNotFound, http.StatusNotFound},
		{"component not found", apperrors.ErrComponentNotFound, http.StatusNotFound},
		{"invalid transition", apperrors.ErrInvalidTransition, http.StatusConflict},
		{"insufficient stock", apperrors.ErrInsufficientStock, http.StatusConflict},
		{"invalid quantity", apperrors.ErrInvalidQuantity, http.StatusBadRequest},
		{"component on loan", apperrors.ErrComponentOnLoan, http.StatusConflict},
		{"invalid credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"validation failed", apperrors.ErrValidationFailed, http.StatusBadRequest},
		{"store unavailable", apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"notification failed", apperrors.ErrNotificationFailed, http.StatusBadGateway},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := responseFor(tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

// Wrapped sentinels must map the same as bare ones; connectivity failures
// surface as 503 so clients know to retry.
func TestHandleAPIErrorWrappedStoreUnavailable(t *testing.T) {
	err := fmt.Errorf("%w: error querying requests: dial tcp: connection refused", apperrors.ErrStoreUnavailable)
	w := responseFor(err)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SRV_002")
}

func TestHandleAPIErrorCustomErrorKeepsSentinelMapping(t *testing.T) {
	err := apperrors.NewCustomError(apperrors.ErrInvalidQuantity, "total quantity cannot be negative")
	w := responseFor(err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "total quantity cannot be negative")
}
