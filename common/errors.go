package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexuslab/models"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("operation not allowed")
	ErrAuthRequired = errors.New("authentication required")
	ErrValidation   = errors.New("invalid input")
)

// WriteError maps a domain error to its HTTP response. Unknown errors become
// an opaque 500 so internals never leak to clients; the detail goes to the
// log instead.
func WriteError(c *gin.Context, err error) {
	log.Printf("error: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)

	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "restricted_access", Message: err.Error()})
	case errors.Is(err, ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "auth_required", Message: err.Error()})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "something went wrong"})
	}
}
