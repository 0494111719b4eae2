// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "fieldcrm-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MsgForbidden    = "Insufficient permissions."
	MsgUnauthorized = "Authentication required."
	MsgNotFound     = "Resource not found."
	MsgInternal     = "internal server error"
)

// Envelope is the single-resource response: {data}.
type Envelope struct {
	Data interface{} `json:"data"`
}

// ListEnvelope is the paginated response: {data, meta}.
type ListEnvelope struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta"`
}

// ErrorBody is every non-2xx response: {message} plus errors for 400s.
type ErrorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// Success sends {data} with the given status.
func Success(c *gin.Context, status int, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Envelope{Data: data})
}

// List sends {data, meta}.
func List(c *gin.Context, data, meta interface{}) {
	c.JSON(http.StatusOK, ListEnvelope{Data: data, Meta: meta})
}

// Error sends a message-only error and aborts the chain.
func Error(c *gin.Context, code int, message string, errs ...string) {
	// Abort first so later handlers never write to the response
	c.Abort()
	c.JSON(code, ErrorBody{Message: message, Errors: errs})
}

// ValidationError sends 400 {message, errors}.
func ValidationError(c *gin.Context, message string, errs []string) {
	c.Abort()
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": message, "errors": errs})
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// FromError maps a service error onto its status and envelope. Anything not
// recognised is logged and answered with a generic 500.
func FromError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *xerrors.ValidationError
	var ferr *xerrors.ForbiddenError
	var nerr *xerrors.NotFoundError

	switch {
	case errors.As(err, &verr):
		ValidationError(c, verr.Message, verr.Errors)
	case errors.As(err, &ferr):
		Error(c, http.StatusForbidden, ferr.Message, ferr.Errors...)
	case errors.Is(err, xerrors.ErrForbidden):
		Forbidden(c, MsgForbidden)
	case errors.As(err, &nerr):
		NotFound(c, nerr.Message)
	case errors.Is(err, xerrors.ErrNotFound):
		NotFound(c, MsgNotFound)
	case errors.Is(err, xerrors.ErrUnauthorized):
		Unauthorized(c, MsgUnauthorized)
	default:
		if logger != nil {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		Error(c, http.StatusInternalServerError, MsgInternal)
	}
}
