package middlewares

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/jwt"
	"alumni-network/app/server/models"
	"alumni-network/app/server/principals"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"strings"
)

const (
	ContextKeyClaims    = "accessClaims"
	ContextKeyPrincipal = "principal"
)

const bearerPrefix = "Bearer "

var errMissingToken = errors.New("missing access token")

type Guard struct {
	j   *jwt.JWT
	dir *principals.Directory
	rdb *redis.Client
	l   *zap.Logger
}

func NewGuard(j *jwt.JWT, dir *principals.Directory, rdb *redis.Client, l *zap.Logger) *Guard {
	return &Guard{
		j:   j,
		dir: dir,
		rdb: rdb,
		l:   l,
	}
}

func (g *Guard) Member() echo.MiddlewareFunc {
	return g.require("", models.KindMember)
}

func (g *Guard) Admin() echo.MiddlewareFunc {
	return g.require("", models.KindAdmin)
}

// Any accepts a member, then falls back to an administrator. Every failure gets the same answer.
func (g *Guard) Any() echo.MiddlewareFunc {
	return g.require("Authentication required", models.KindMember, models.KindAdmin)
}

func (g *Guard) require(genericMessage string, kinds ...models.Kind) echo.MiddlewareFunc {
	fail := func(message string) error {
		if genericMessage != "" {
			message = genericMessage
		}
		return envelope.Unauthorized(message)
	}

	parse := echojwt.WithConfig(echojwt.Config{
		TokenLookupFuncs: []middleware.ValuesExtractor{accessToken},
		ContextKey:       ContextKeyClaims,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := g.j.ParseAccess(auth)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if !hasToken(c) {
				return fail("Unauthorized request")
			}
			return fail("Invalid access token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(func(c echo.Context) error {
			claims, ok := c.Get(ContextKeyClaims).(*jwt.AccessClaims)
			if !ok {
				return fail("Invalid access token")
			}

			rctx := c.Request().Context()

			p, err := g.resolve(rctx, claims.ID, kinds)
			if err != nil {
				if errors.Is(err, principals.ErrNotFound) {
					return fail("Invalid access token")
				}
				g.l.Error("failed to resolve principal", zap.String("id", claims.ID.String()), zap.Error(err))
				return envelope.Internal("Failed to resolve principal", err)
			}

			// 设置 context
			c.Set(ContextKeyPrincipal, p)

			// 继续处理
			return next(c)
		})
	}
}

func (g *Guard) resolve(ctx context.Context, id uuid.UUID, kinds []models.Kind) (models.Principal, error) {
	for _, kind := range kinds {
		p, err := g.lookup(ctx, kind, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, principals.ErrNotFound) {
			return nil, err
		}
	}

	return nil, principals.ErrNotFound
}

func (g *Guard) lookup(ctx context.Context, kind models.Kind, id uuid.UUID) (models.Principal, error) {
	// 查询缓存
	cacheKey := fmt.Sprintf(constants.CacheKeyPrincipal, kind, id)
	if cacheBytes, err := g.rdb.Get(ctx, cacheKey).Bytes(); err != nil {
		if !errors.Is(err, redis.Nil) {
			g.l.Error("failed to query cache for principal", zap.String("id", id.String()), zap.Error(err))
		}
	} else {
		p := models.NewPrincipal(kind)
		if err = json.Unmarshal(cacheBytes, p); err != nil {
			g.l.Error("failed to unmarshal principal", zap.String("id", id.String()), zap.ByteString("cacheBytes", cacheBytes), zap.Error(err))
			// 可能是无效的缓存，清理掉
			g.rdb.Del(ctx, cacheKey)
		} else {
			return p, nil
		}
	}

	// 查询数据库
	store := g.dir.Store(kind)
	if store == nil {
		return nil, principals.ErrNotFound
	}
	p, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 下游不需要密码和令牌
	*p.Credentials() = models.Credential{}

	// 格式化并加入缓存，方便下一次查询
	if cacheBytes, err := json.Marshal(p); err != nil {
		g.l.Error("failed to marshal principal", zap.String("id", id.String()), zap.Error(err))
	} else {
		g.rdb.Set(ctx, cacheKey, cacheBytes, constants.CacheExpirePrincipal)
	}

	return p, nil
}

// EvictPrincipal drops the cached copy after the record changed.
func EvictPrincipal(ctx context.Context, rdb *redis.Client, kind models.Kind, id uuid.UUID) error {
	return rdb.Del(ctx, fmt.Sprintf(constants.CacheKeyPrincipal, kind, id)).Err()
}

func PrincipalFromContext(c echo.Context) (models.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(models.Principal)
	return p, ok && p != nil
}

// accessToken 只取一个来源：有 cookie 就只用 cookie，否则才看 Authorization 头
func accessToken(c echo.Context) ([]string, error) {
	if cookie, err := c.Cookie(constants.CookieAccessToken); err == nil && cookie.Value != "" {
		return []string{cookie.Value}, nil
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return []string{header[len(bearerPrefix):]}, nil
	}

	return nil, errMissingToken
}

func hasToken(c echo.Context) bool {
	_, err := accessToken(c)
	return err == nil
}
