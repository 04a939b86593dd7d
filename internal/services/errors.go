package services

import (
	"errors"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrSlideNotFound       = errors.New("slide not found")
	ErrInvalidSlideOrder   = errors.New("slide order must list each slide id once")
	ErrInvalidDisplaySize  = errors.New("display size must be one of small, medium, large, full")
	ErrNoSlidesExtracted   = errors.New("no slides could be extracted from the document")
	ErrInvalidDocument     = errors.New("file is not a valid pdf document")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidSlideNumber  = errors.New("slide number must be a positive integer")
	ErrDeckFileNotFound    = errors.New("no deck file has been uploaded")

	ErrPartnerNotFound    = errors.New("partner not found")
	ErrPartnerExists      = errors.New("a partner with this name already exists")
	ErrInvalidPartner     = errors.New("partner is invalid")
	ErrInvalidPositions   = errors.New("positions must list each partner once")
	ErrConnectionNotFound = errors.New("partner connection not found")
	ErrConnectionExists   = errors.New("partner connection already exists")
	ErrInvalidConnection  = errors.New("connection must join two different existing partners")
	ErrInvalidStrength    = errors.New("connection strength must be greater than 0 and at most 10")

	ErrUnknownContentKey = errors.New("unknown content document")
	ErrInvalidContent    = errors.New("content document must be a json object")
	ErrContentNotFound   = errors.New("content document not found")

	ErrInvalidSchedule = errors.New("update schedule is invalid")
)

// FieldErrors maps a field path to a human readable message.
type FieldErrors map[string]string

// ValidationError carries per-field failures and wraps a package sentinel.
type ValidationError struct {
	Err    error
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return e.Err.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
