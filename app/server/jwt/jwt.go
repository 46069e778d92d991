package jwt

import (
	"alumni-network/app/server/models"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

var ErrTokenInvalid = errors.New("token invalid")

// JWT signs and verifies the two token kinds. Access and refresh tokens use separate keys.
type JWT struct {
	accessKey     []byte
	accessExpiry  time.Duration
	refreshKey    []byte
	refreshExpiry time.Duration

	now func() time.Time
}

type AccessClaims struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	ID uuid.UUID `json:"id"`
	jwt.RegisteredClaims
}

func New(accessKey string, accessExpiry time.Duration, refreshKey string, refreshExpiry time.Duration) (*JWT, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, errors.New("key is empty")
	}
	if accessKey == refreshKey {
		return nil, errors.New("access and refresh keys must differ")
	}
	if accessExpiry <= 0 || refreshExpiry <= 0 {
		return nil, errors.New("expiry must be positive")
	}

	return &JWT{
		accessKey:     []byte(accessKey),
		accessExpiry:  accessExpiry,
		refreshKey:    []byte(refreshKey),
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}, nil
}

func (j *JWT) AccessExpiry() time.Duration  { return j.accessExpiry }
func (j *JWT) RefreshExpiry() time.Duration { return j.refreshExpiry }

func (j *JWT) registered(expiry time.Duration) jwt.RegisteredClaims {
	now := j.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(), // 保证同一秒内签出的令牌也不相同
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
}

func (j *JWT) SignAccess(p models.Principal) (string, error) {
	claims := &AccessClaims{
		ID:               p.PrincipalID(),
		Email:            p.PrincipalEmail(),
		Name:             p.DisplayName(),
		Role:             p.PrincipalRole(),
		RegisteredClaims: j.registered(j.accessExpiry),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return token, nil
}

// SignRefresh only carries the id, everything else is re-read from the store on refresh.
func (j *JWT) SignRefresh(p models.Principal) (string, error) {
	claims := &RefreshClaims{
		ID:               p.PrincipalID(),
		RegisteredClaims: j.registered(j.refreshExpiry),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshKey)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return token, nil
}

func (j *JWT) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenString, claims, j.accessKey); err != nil {
		return nil, err
	}

	return claims, nil
}

func (j *JWT) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenString, claims, j.refreshKey); err != nil {
		return nil, err
	}

	return claims, nil
}

func (j *JWT) parse(tokenString string, claims jwt.Claims, key []byte) error {
	// 检查是否有效
	if len(tokenString) == 0 {
		return fmt.Errorf("%w: token string is empty", ErrTokenInvalid)
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	// 载荷里必须有 id
	var id uuid.UUID
	switch c := claims.(type) {
	case *AccessClaims:
		id = c.ID
	case *RefreshClaims:
		id = c.ID
	}
	if id == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}

	return nil
}
