package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
	"github.com/baselineanalytics/portal/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On failure a 400 carrying per-field messages has been written.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	err := validator.ValidateStruct(dest)
	if err == nil {
		return true
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return false
	}
	response.Error(c, apperrors.NewBadRequest(failures.Error()).WithDetails(failures.Fields("")))
	return false
}

// parseIntQuery returns the integer query parameter key, or fallback when it
// is absent or malformed.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
