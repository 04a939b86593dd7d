package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/baselineanalytics/portal/pkg/crypto"
)

// ErrInvalidPIN is returned when no configured entry matches the supplied PIN.
var ErrInvalidPIN = errors.New("auth: invalid pin")

var verifyPIN = crypto.VerifyPIN

// PINEntry is a configured credential. Exactly one of PIN or PINHash is set.
type PINEntry struct {
	Slug    string
	Role    Role
	PIN     string
	PINHash string
}

type pinRecord struct {
	slug string
	role Role
	hash string
}

// PINDirectory resolves PINs to sessions.
type PINDirectory struct {
	records []pinRecord
}

// NewPINDirectory validates entries and hashes any plain PINs.
func NewPINDirectory(entries []PINEntry) (*PINDirectory, error) {
	dir := &PINDirectory{records: make([]pinRecord, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		slug := strings.TrimSpace(entry.Slug)
		if slug == "" {
			return nil, fmt.Errorf("pin directory: entry %d: slug is required", i)
		}
		if _, ok := seen[slug]; ok {
			return nil, fmt.Errorf("pin directory: duplicate slug %q", slug)
		}
		seen[slug] = struct{}{}

		role, ok := ParseRole(string(entry.Role))
		if !ok {
			return nil, fmt.Errorf("pin directory: entry %q: unknown role %q", slug, entry.Role)
		}

		hash := strings.TrimSpace(entry.PINHash)
		switch {
		case hash != "":
			if !crypto.IsBcryptHash(hash) {
				return nil, fmt.Errorf("pin directory: entry %q: pin_hash is not a bcrypt hash", slug)
			}
		case strings.TrimSpace(entry.PIN) != "":
			hashed, err := crypto.HashPIN(entry.PIN)
			if err != nil {
				return nil, fmt.Errorf("pin directory: entry %q: %w", slug, err)
			}
			hash = hashed
		default:
			return nil, fmt.Errorf("pin directory: entry %q: pin or pin_hash is required", slug)
		}

		dir.records = append(dir.records, pinRecord{slug: slug, role: role, hash: hash})
	}

	return dir, nil
}

// Len returns the number of configured entries.
func (d *PINDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Authenticate returns the session for the first entry matching pin.
// A non-empty role restricts the candidates. Every entry is compared so the
// response time does not reveal which entry matched.
func (d *PINDirectory) Authenticate(pin string, role Role) (Session, error) {
	pin = strings.TrimSpace(pin)
	if d == nil || pin == "" {
		return Session{}, ErrInvalidPIN
	}
	if role != "" && !role.Valid() {
		return Session{}, ErrInvalidRole
	}

	var (
		matched Session
		found   bool
	)
	for _, record := range d.records {
		ok := verifyPIN(record.hash, pin)
		if found || !ok || (role != "" && record.role != role) {
			continue
		}
		matched = Session{Slug: record.slug, Role: record.role}
		found = true
	}
	if !found {
		return Session{}, ErrInvalidPIN
	}
	return matched, nil
}
