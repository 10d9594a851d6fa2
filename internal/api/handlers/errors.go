package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/logger"
	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidationError(err):
		body := gin.H{"error": err.Error()}
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, services.ErrPolicyNotFound),
		errors.Is(err, services.ErrReleaseNotFound),
		errors.Is(err, services.ErrAuditNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoFetcher):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoPolicyFound):
		logger.Errorf("Configuration error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logger.Errorf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pagination reads limit and offset query parameters; zero means "use the default"
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return 0, 0, false
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return 0, 0, false
		}
	}
	return limit, offset, true
}
