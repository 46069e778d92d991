// Package principals persists members and administrators and looks them up across both kinds.
package principals

import (
	"alumni-network/app/server/models"
	"context"
	"errors"
	"github.com/google/uuid"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("principal not found")
	ErrDuplicate = errors.New("principal already exists")
	ErrKind      = errors.New("principal kind mismatch")
)

// Store is the credential store of one principal kind. Every mutation is a single
// update-by-id so that concurrent requests rely on the database's row atomicity.
type Store interface {
	Kind() models.Kind

	FindByID(ctx context.Context, id uuid.UUID) (models.Principal, error)
	FindByEmail(ctx context.Context, email string) (models.Principal, error)
	List(ctx context.Context, showAll bool, page, limit int) ([]models.Principal, int64, error)

	Create(ctx context.Context, p models.Principal) error
	UpdateProfile(ctx context.Context, p models.Principal) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SetRefreshToken overwrites the stored refresh token, nil clears it.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	// SwapRefreshToken replaces old with next only if old is still the stored value.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error)

	SetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error
	// ReplacePassword stores a new hash and clears the recovery fields in the same update.
	ReplacePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail accepts a bare address only. Display names and line breaks are rejected
// because the address ends up in mail headers.
func ValidEmail(email string) bool {
	if strings.ContainsAny(email, "\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
