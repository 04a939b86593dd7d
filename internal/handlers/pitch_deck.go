package handlers

import (
	stdErrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/middleware"
	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

// multipartOverhead leaves room for form boundaries and text fields around the file part.
const multipartOverhead = 1 << 20

const (
	slideActionDelete     = "delete"
	slideActionSetActive  = "set_active"
	slideActionUpdateSize = "update_size"
	slideActionReorder    = "reorder"
)

// PitchDeckHandler serves the pitch deck upload, slide and file endpoints.
type PitchDeckHandler struct {
	slides     *services.SlideService
	imports    *services.DeckImportService
	authorizer *iauth.Authorizer
	audit      *services.AuditService
}

// NewPitchDeckHandler constructs a pitch deck handler.
func NewPitchDeckHandler(slides *services.SlideService, imports *services.DeckImportService, authorizer *iauth.Authorizer, audit *services.AuditService) *PitchDeckHandler {
	return &PitchDeckHandler{slides: slides, imports: imports, authorizer: authorizer, audit: audit}
}

// POST /api/pitch-deck/upload
func (h *PitchDeckHandler) Upload(c *gin.Context) {
	maxDocument, _ := h.imports.Limits()

	header, data, ok := readUpload(c, maxDocument)
	if !ok {
		return
	}

	file, err := h.imports.UploadDeck(requestContext(c), services.DeckUpload{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
		UploadedBy:   sessionSlug(c),
	})
	auditAdmin(c, h.audit, "deck.upload", "pitch-deck", err, map[string]any{
		"original_name": header.Filename,
		"size":          len(data),
	})
	if err != nil {
		respondError(c, "deck-import", err)
		return
	}

	response.Success(c, http.StatusOK, file)
}

// POST /api/pitch-deck/upload-slide
func (h *PitchDeckHandler) UploadSlide(c *gin.Context) {
	_, maxSlide := h.imports.Limits()

	_, data, ok := readUpload(c, maxSlide)
	if !ok {
		return
	}

	slideNumber, err := strconv.Atoi(strings.TrimSpace(c.PostForm("slideNumber")))
	if err != nil || slideNumber < 1 {
		response.Error(c, errors.NewBadRequest(services.ErrInvalidSlideNumber.Error()))
		return
	}
	isFirst, _ := strconv.ParseBool(strings.TrimSpace(c.PostForm("isFirst")))

	slide, err := h.imports.UploadSlide(requestContext(c), services.SlideUpload{
		SlideNumber: slideNumber,
		IsFirst:     isFirst,
		Data:        data,
	})
	auditAdmin(c, h.audit, "deck.upload_slide", "pitch-deck", err, map[string]any{
		"slide_number": slideNumber,
		"is_first":     isFirst,
	})
	if err != nil {
		respondError(c, "deck-import", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"success": true, "slide": slide})
}

type slidesPayload struct {
	Slides   []models.Slide     `json:"slides"`
	Settings models.DeckSetting `json:"settings"`
}

// GET /api/pitch-deck/slides
func (h *PitchDeckHandler) ListSlides(c *gin.Context) {
	isAdmin := false
	if session, ok := middleware.SessionFromContext(c); ok {
		isAdmin = h.authorizer.IsAdmin(session)
	}

	ctx := requestContext(c)
	slides, err := h.slides.List(ctx, isAdmin)
	if err != nil {
		respondError(c, "slides", err)
		return
	}
	settings, err := h.slides.Settings(ctx)
	if err != nil {
		respondError(c, "slides", err)
		return
	}

	if !isAdmin {
		for i := range slides {
			slides[i] = slides[i].Public()
		}
	}
	if slides == nil {
		slides = []models.Slide{}
	}

	response.Success(c, http.StatusOK, slidesPayload{Slides: slides, Settings: settings})
}

type slideActionRequest struct {
	Action   string   `json:"action" validate:"required"`
	SlideID  string   `json:"slideId"`
	IsActive *bool    `json:"isActive"`
	Size     string   `json:"size"`
	SlideIDs []string `json:"slideIds"`
}

// POST /api/pitch-deck/slides
func (h *PitchDeckHandler) SlideAction(c *gin.Context) {
	var req slideActionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	action := strings.ToLower(strings.TrimSpace(req.Action))

	var (
		result any
		err    error
	)
	switch action {
	case slideActionDelete:
		if strings.TrimSpace(req.SlideID) == "" {
			response.Error(c, errors.NewBadRequest("slideId is required"))
			return
		}
		err = h.slides.Delete(ctx, req.SlideID)
		result = gin.H{"deleted": true, "slideId": req.SlideID}
	case slideActionSetActive:
		if strings.TrimSpace(req.SlideID) == "" || req.IsActive == nil {
			response.Error(c, errors.NewBadRequest("slideId and isActive are required"))
			return
		}
		result, err = h.slides.SetActive(ctx, req.SlideID, *req.IsActive)
	case slideActionUpdateSize:
		result, err = h.slides.UpdateSize(ctx, req.Size, sessionSlug(c))
	case slideActionReorder:
		if err = h.slides.Reorder(ctx, req.SlideIDs); err == nil {
			result, err = h.slides.List(ctx, true)
			if err == nil {
				result = gin.H{"slides": result}
			}
		}
	default:
		response.Error(c, errors.NewBadRequest("unknown action"))
		return
	}

	auditAdmin(c, h.audit, "slides."+action, "pitch-deck", err, map[string]any{
		"slide_id": req.SlideID,
	})
	if err != nil {
		respondError(c, "slides", err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// DELETE /api/pitch-deck/slides
func (h *PitchDeckHandler) ClearSlides(c *gin.Context) {
	removed, err := h.imports.ClearDeck(requestContext(c))
	auditAdmin(c, h.audit, "slides.clear", "pitch-deck", err, map[string]any{"removed": removed})
	if err != nil {
		respondError(c, "slides", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}

// GET /api/pitch-deck/file
func (h *PitchDeckHandler) File(c *gin.Context) {
	file, err := h.imports.LatestFile(requestContext(c))
	if err != nil {
		respondError(c, "deck-import", err)
		return
	}
	response.Success(c, http.StatusOK, file)
}

// readUpload reads the multipart "file" part, enforcing limit on its size.
// On failure an error response has been written and ok is false.
func readUpload(c *gin.Context, limit int64) (*multipart.FileHeader, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			response.Error(c, errors.ErrPayloadTooLarge)
			return nil, nil, false
		}
		response.Error(c, errors.NewBadRequest("file is required"))
		return nil, nil, false
	}
	if header.Size > limit {
		response.Error(c, errors.ErrPayloadTooLarge)
		return nil, nil, false
	}
	if header.Size == 0 {
		response.Error(c, errors.NewBadRequest(services.ErrEmptyFile.Error()))
		return nil, nil, false
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, errors.NewBadRequest("file could not be read"))
		return nil, nil, false
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		response.Error(c, errors.NewBadRequest("file could not be read"))
		return nil, nil, false
	}
	if int64(len(data)) > limit {
		response.Error(c, errors.ErrPayloadTooLarge)
		return nil, nil, false
	}
	return header, data, true
}
