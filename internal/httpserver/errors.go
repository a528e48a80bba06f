package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinboard/internal/domain"
	usersvc "coinboard/internal/service/user"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrParentNotFound, http.StatusBadRequest},
	{domain.ErrCyclicHierarchy, http.StatusBadRequest},
	{domain.ErrHierarchyTooDeep, http.StatusBadRequest},
	{domain.ErrInvalidDeleteMode, http.StatusBadRequest},
	{domain.ErrCategoryNotFound, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrDuplicateCategoryName, http.StatusConflict},
	{domain.ErrAlreadyExists, http.StatusConflict},
	{domain.ErrHasChildren, http.StatusConflict},
	{usersvc.ErrInvalidCredentials, http.StatusUnauthorized},
	{usersvc.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
}

// statusFor maps a service error to its HTTP status; 500 when unknown.
func statusFor(err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		requestLogger(c).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
