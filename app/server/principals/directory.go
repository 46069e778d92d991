package principals

import (
	"alumni-network/app/server/models"
	"context"
	"errors"
	"github.com/google/uuid"
)

// Directory looks principals up across every store, in order. Members come before
// administrators, so an email registered in both stores resolves to the member.
type Directory struct {
	stores []Store
}

func NewDirectory(members, admins Store) *Directory {
	return &Directory{stores: []Store{members, admins}}
}

func (d *Directory) Store(kind models.Kind) Store {
	for _, s := range d.stores {
		if s.Kind() == kind {
			return s
		}
	}
	return nil
}

func (d *Directory) FindByID(ctx context.Context, id uuid.UUID, kinds ...models.Kind) (models.Principal, Store, error) {
	return d.find(ctx, kinds, func(s Store) (models.Principal, error) {
		return s.FindByID(ctx, id)
	})
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (models.Principal, Store, error) {
	return d.FindByEmailWhere(ctx, email, nil)
}

// FindByEmailWhere returns the first principal with email that also satisfies match.
func (d *Directory) FindByEmailWhere(ctx context.Context, email string, match func(models.Principal) bool) (models.Principal, Store, error) {
	return d.find(ctx, nil, func(s Store) (models.Principal, error) {
		p, err := s.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if match != nil && !match(p) {
			return nil, ErrNotFound
		}
		return p, nil
	})
}

func (d *Directory) find(ctx context.Context, kinds []models.Kind, lookup func(Store) (models.Principal, error)) (models.Principal, Store, error) {
	for _, s := range d.stores {
		if len(kinds) > 0 && !containsKind(kinds, s.Kind()) {
			continue
		}

		p, err := lookup(s)
		if err == nil {
			return p, s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}

	return nil, nil, ErrNotFound
}

func containsKind(kinds []models.Kind, kind models.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
