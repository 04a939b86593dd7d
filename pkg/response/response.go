// Package response writes the JSON envelope every API endpoint answers with.
package response

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/baselineanalytics/portal/pkg/errors"
)

// Response is the envelope: success plus exactly one of data or error.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta describes one page of a paginated listing.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

func SuccessWithMeta(c *gin.Context, statusCode int, data any, meta *Meta) {
	c.JSON(statusCode, Response{Success: true, Data: data, Meta: meta})
}

// Error renders err as an error envelope. Errors that are not AppErrors are
// reported as a generic internal error so their text never reaches clients.
func Error(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	if appErr == nil {
		appErr = apperrors.ErrInternalServer
	}
	c.JSON(appErr.Status(), Response{
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// Abort is Error followed by aborting the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// NewMeta computes pagination metadata for one page of total results.
func NewMeta(page, perPage int, total int64) *Meta {
	meta := &Meta{Page: page, Total: int(total)}
	if perPage > 0 {
		meta.PerPage = perPage
		meta.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return meta
}
