package handlers

import (
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/response"
)

// translateServiceError maps service sentinels onto API errors.
func translateServiceError(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	var validation *services.ValidationError
	if stdErrors.As(err, &validation) {
		bad := errors.NewBadRequest(validation.Err.Error())
		if len(validation.Fields) > 0 {
			bad = bad.WithDetails(validation.Fields)
		}
		return bad
	}

	switch {
	case stdErrors.Is(err, services.ErrSlideNotFound),
		stdErrors.Is(err, services.ErrDeckFileNotFound),
		stdErrors.Is(err, services.ErrPartnerNotFound),
		stdErrors.Is(err, services.ErrConnectionNotFound),
		stdErrors.Is(err, services.ErrContentNotFound),
		stdErrors.Is(err, services.ErrUnknownContentKey):
		return errors.NewNotFound(err.Error())
	case stdErrors.Is(err, services.ErrPartnerExists),
		stdErrors.Is(err, services.ErrConnectionExists):
		return errors.NewConflict(err.Error())
	case stdErrors.Is(err, services.ErrFileTooLarge):
		return errors.ErrPayloadTooLarge
	case stdErrors.Is(err, services.ErrUnsupportedFileType):
		return errors.ErrUnsupportedMedia
	case stdErrors.Is(err, services.ErrNoSlidesExtracted):
		return errors.New("EXTRACTION_FAILED", err.Error(), http.StatusUnprocessableEntity)
	case stdErrors.Is(err, services.ErrInvalidSlideOrder),
		stdErrors.Is(err, services.ErrInvalidDisplaySize),
		stdErrors.Is(err, services.ErrInvalidDocument),
		stdErrors.Is(err, services.ErrEmptyFile),
		stdErrors.Is(err, services.ErrInvalidSlideNumber),
		stdErrors.Is(err, services.ErrInvalidPartner),
		stdErrors.Is(err, services.ErrInvalidPositions),
		stdErrors.Is(err, services.ErrInvalidConnection),
		stdErrors.Is(err, services.ErrInvalidStrength),
		stdErrors.Is(err, services.ErrInvalidContent),
		stdErrors.Is(err, services.ErrInvalidSchedule):
		return errors.NewBadRequest(err.Error())
	}

	return errors.ErrUpstream.WithInternal(err)
}

// respondError logs unexpected failures and writes the mapped error envelope.
func respondError(c *gin.Context, module string, err error) {
	appErr := translateServiceError(err)
	if appErr.Status() >= http.StatusInternalServerError {
		logger.WithModule(module).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, appErr)
}
