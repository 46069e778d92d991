package principals

import (
	"alumni-network/app/server/models"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore[models.Member])(nil)
var _ Store = (*MemoryStore[models.Admin])(nil)

// MemoryStore keeps principals in process memory. Records are copied in and out, so callers
// never share state with the store.
type MemoryStore[M models.Member | models.Admin] struct {
	mu    sync.Mutex
	items map[uuid.UUID]M
	now   func() time.Time
}

func NewMemoryStore[M models.Member | models.Admin]() *MemoryStore[M] {
	return &MemoryStore[M]{
		items: make(map[uuid.UUID]M),
		now:   time.Now,
	}
}

func (s *MemoryStore[M]) Kind() models.Kind {
	var m M
	return principalOf(&m).PrincipalKind()
}

func (s *MemoryStore[M]) out(m M) models.Principal {
	return principalOf(&m)
}

func (s *MemoryStore[M]) FindByID(_ context.Context, id uuid.UUID) (models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	return s.out(m), nil
}

func (s *MemoryStore[M]) FindByEmail(_ context.Context, email string) (models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = NormalizeEmail(email)
	for _, m := range s.items {
		if principalOf(&m).PrincipalEmail() == email {
			return s.out(m), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemoryStore[M]) List(_ context.Context, showAll bool, page, limit int) ([]models.Principal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Principal, 0, len(s.items))
	for _, m := range s.items {
		all = append(all, s.out(m))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].PrincipalEmail() < all[j].PrincipalEmail()
	})

	count := int64(len(all))
	if showAll {
		return all, count, nil
	}

	start := page * limit
	if start >= len(all) {
		return []models.Principal{}, count, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], count, nil
}

func (s *MemoryStore[M]) cast(p models.Principal) (*M, error) {
	m, ok := any(p).(*M)
	if !ok {
		return nil, fmt.Errorf("%w: store %s got %T", ErrKind, s.Kind(), p)
	}
	return m, nil
}

// conflicts mirrors the unique indexes of the tables.
func (s *MemoryStore[M]) conflicts(m *M) bool {
	p := principalOf(m)
	member, isMember := p.(*models.Member)
	for id, existing := range s.items {
		if id == p.PrincipalID() {
			continue
		}
		other := principalOf(&existing)
		if other.PrincipalEmail() == p.PrincipalEmail() {
			return true
		}
		if isMember && other.(*models.Member).Username == member.Username {
			return true
		}
	}
	return false
}

func (s *MemoryStore[M]) Create(_ context.Context, p models.Principal) error {
	m, err := s.cast(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch v := any(m).(type) {
	case *models.Member:
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.CreatedAt, v.UpdatedAt = s.now(), s.now()
	case *models.Admin:
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.CreatedAt, v.UpdatedAt = s.now(), s.now()
	}

	if _, exist := s.items[p.PrincipalID()]; exist || s.conflicts(m) {
		return ErrDuplicate
	}

	s.items[p.PrincipalID()] = *m
	return nil
}

func (s *MemoryStore[M]) UpdateProfile(_ context.Context, p models.Principal) error {
	m, err := s.cast(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[p.PrincipalID()]
	if !ok {
		return ErrNotFound
	}
	if s.conflicts(m) {
		return ErrDuplicate
	}

	// 认证相关字段保持原样
	updated := *m
	*principalOf(&updated).Credentials() = *principalOf(&stored).Credentials()
	s.items[p.PrincipalID()] = updated

	return nil
}

func (s *MemoryStore[M]) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)

	return nil
}

// mutate applies fn to the stored credential of id.
func (s *MemoryStore[M]) mutate(id uuid.UUID, fn func(cred *models.Credential) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return false, ErrNotFound
	}

	if !fn(principalOf(&m).Credentials()) {
		return false, nil
	}
	s.items[id] = m

	return true, nil
}

func (s *MemoryStore[M]) SetRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	_, err := s.mutate(id, func(cred *models.Credential) bool {
		cred.RefreshToken = clonePtr(token)
		return true
	})
	return err
}

func (s *MemoryStore[M]) SwapRefreshToken(_ context.Context, id uuid.UUID, old, next string) (bool, error) {
	swapped, err := s.mutate(id, func(cred *models.Credential) bool {
		if cred.RefreshToken == nil || *cred.RefreshToken != old {
			return false
		}
		cred.RefreshToken = &next
		return true
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return swapped, err
}

func (s *MemoryStore[M]) SetOTP(_ context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	_, err := s.mutate(id, func(cred *models.Credential) bool {
		cred.ResetOTP = clonePtr(code)
		cred.ResetOTPExpires = clonePtr(expires)
		return true
	})
	return err
}

func (s *MemoryStore[M]) ReplacePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.mutate(id, func(cred *models.Credential) bool {
		cred.Password = passwordHash
		cred.ResetOTP = nil
		cred.ResetOTPExpires = nil
		return true
	})
	return err
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
