package principals

import (
	"alumni-network/app/server/models"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

var _ Store = (*GormStore[models.Member])(nil)
var _ Store = (*GormStore[models.Admin])(nil)

// 方法不能有类型形参，所以用泛型结构体来区分两张表
type GormStore[M models.Member | models.Admin] struct {
	db *gorm.DB
}

func NewGormStore[M models.Member | models.Admin](db *gorm.DB) *GormStore[M] {
	return &GormStore[M]{db: db}
}

func principalOf[M models.Member | models.Admin](m *M) models.Principal {
	return any(m).(models.Principal)
}

func (s *GormStore[M]) Kind() models.Kind {
	var m M
	return principalOf(&m).PrincipalKind()
}

func (s *GormStore[M]) first(ctx context.Context, query string, args ...interface{}) (models.Principal, error) {
	var m M
	if err := s.db.WithContext(ctx).First(&m, append([]interface{}{query}, args...)...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", s.Kind(), err)
	}

	return principalOf(&m), nil
}

func (s *GormStore[M]) FindByID(ctx context.Context, id uuid.UUID) (models.Principal, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore[M]) FindByEmail(ctx context.Context, email string) (models.Principal, error) {
	return s.first(ctx, "email = ?", NormalizeEmail(email))
}

func (s *GormStore[M]) List(ctx context.Context, showAll bool, page, limit int) ([]models.Principal, int64, error) {
	var (
		list  []M
		count int64
	)

	queryBase := s.db.WithContext(ctx).Model(new(M)).Order("created_at ASC")
	if !showAll {
		queryBase = queryBase.Limit(limit).Offset(page * limit)
	}

	if err := queryBase.Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", s.Kind(), err)
	}
	if err := s.db.WithContext(ctx).Model(new(M)).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", s.Kind(), err)
	}

	res := make([]models.Principal, 0, len(list))
	for i := range list {
		res = append(res, principalOf(&list[i]))
	}

	return res, count, nil
}

func (s *GormStore[M]) cast(p models.Principal) (*M, error) {
	m, ok := any(p).(*M)
	if !ok {
		return nil, fmt.Errorf("%w: store %s got %T", ErrKind, s.Kind(), p)
	}
	return m, nil
}

func (s *GormStore[M]) Create(ctx context.Context, p models.Principal) error {
	m, err := s.cast(p)
	if err != nil {
		return err
	}

	if err = s.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create %s: %w", s.Kind(), err)
	}

	return nil
}

func (s *GormStore[M]) UpdateProfile(ctx context.Context, p models.Principal) error {
	m, err := s.cast(p)
	if err != nil {
		return err
	}

	// 认证相关字段只能通过专门的方法修改，其他字段包括零值全部写入
	res := s.db.WithContext(ctx).Model(m).Select("*").Omit(append([]string{"id", "created_at"}, models.CredentialColumns...)...).Updates(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("update %s: %w", s.Kind(), res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore[M]) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(new(M), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", s.Kind(), res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore[M]) updateColumns(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(new(M)).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", s.Kind(), id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore[M]) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return s.updateColumns(ctx, id, map[string]interface{}{
		"refresh_token": token,
	})
}

func (s *GormStore[M]) SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(new(M)).
		Where("id = ? AND refresh_token = ?", id, old).
		Update("refresh_token", next)
	if res.Error != nil {
		return false, fmt.Errorf("swap refresh token %s %s: %w", s.Kind(), id, res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (s *GormStore[M]) SetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	return s.updateColumns(ctx, id, map[string]interface{}{
		"reset_otp":         code,
		"reset_otp_expires": expires,
	})
}

func (s *GormStore[M]) ReplacePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.updateColumns(ctx, id, map[string]interface{}{
		"password":          passwordHash,
		"reset_otp":         nil,
		"reset_otp_expires": nil,
	})
}
