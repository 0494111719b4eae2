package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "fieldcrm-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "validation",
			err:    fmt.Errorf("create: %w", xerrors.NewValidation("Invalid request body.", []string{"a", "b"})),
			status: http.StatusBadRequest,
			body:   `{"message":"Invalid request body.","errors":["a","b"]}`,
		},
		{
			name:   "forbidden with detail",
			err:    xerrors.Forbidden("You are not assigned to this territory.", "Territory is not assigned to this user."),
			status: http.StatusForbidden,
			body:   `{"message":"You are not assigned to this territory.","errors":["Territory is not assigned to this user."]}`,
		},
		{
			name:   "bare forbidden",
			err:    xerrors.ErrForbidden,
			status: http.StatusForbidden,
			body:   `{"message":"Insufficient permissions."}`,
		},
		{
			name:   "named not found",
			err:    xerrors.NotFound("Visit not found."),
			status: http.StatusNotFound,
			body:   `{"message":"Visit not found."}`,
		},
		{
			name:   "bare not found",
			err:    xerrors.ErrNotFound,
			status: http.StatusNotFound,
			body:   `{"message":"Resource not found."}`,
		},
		{
			name:   "unauthorized",
			err:    xerrors.ErrUnauthorized,
			status: http.StatusUnauthorized,
			body:   `{"message":"Authentication required."}`,
		},
		{
			name:   "storage failure",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"message":"internal server error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/visits", nil)

			FromError(c, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.True(t, c.IsAborted())
		})
	}
}

func TestEnvelopes(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, 0, map[string]int{"id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"id":1}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	List(c, []int{}, map[string]int{"total": 0})
	assert.JSONEq(t, `{"data":[],"meta":{"total":0}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ValidationError(c, "Invalid query parameters.", nil)
	assert.JSONEq(t, `{"message":"Invalid query parameters.","errors":[]}`, w.Body.String())
}
