package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/models"
	"alumni-network/app/server/principals"
	"alumni-network/app/server/utils"
	"errors"
	"fmt"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"unicode/utf8"
)

func (a *App) members() principals.Store {
	return a.dir.Store(models.KindMember)
}

func memberIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, envelope.Validation("Invalid member id")
	}
	return id, nil
}

type memberCreateRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Role     *string `json:"role"`
	memberProfileInput
}

// MemberCreate 没有公开注册，成员由管理员创建
func (a *App) MemberCreate(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req memberCreateRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}

	// 校验参数
	email := principals.NormalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	var errs []string
	if !principals.ValidEmail(email) {
		errs = append(errs, "email is invalid")
	}
	if username == "" {
		errs = append(errs, "username is required")
	}
	if utf8.RuneCountInString(req.Password) < constants.PasswordMinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", constants.PasswordMinLength))
	}
	role := models.Role(utils.V(req.Role, string(models.RoleAlumni)))
	if !role.Valid() {
		errs = append(errs, "role must be one of admin, alumni, student")
	}
	if len(errs) > 0 {
		return envelope.Validation("Invalid member", errs...)
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.Password, a.argon)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return envelope.Internal("Failed to create member", err)
	}

	// 创建成员
	member := models.Member{
		Email:    email,
		Username: username,
		Role:     role,
	}
	member.Password = passwordHash
	if err = a.memberMapFields(&req.memberProfileInput, &member); err != nil {
		return err
	}

	if err = a.members().Create(rctx, &member); err != nil {
		if errors.Is(err, principals.ErrDuplicate) {
			return envelope.Conflict("Email or username already in use")
		}
		a.l.Error("failed to create member", zap.String("email", email), zap.Error(err))
		return envelope.Internal("Failed to create member", err)
	}

	return envelope.OK(c, http.StatusCreated, &member, "Member created successfully")
}

func (a *App) MemberList(c echo.Context) error {
	rctx := c.Request().Context()

	page, err := queryUint(c, "page")
	if err != nil {
		return envelope.Validation("Invalid page")
	}
	limit, err := queryUint(c, "limit")
	if err != nil {
		return envelope.Validation("Invalid limit")
	}
	p := parsePagination(page, limit)

	list, count, err := a.members().List(rctx, p.showAll, p.page, p.limit)
	if err != nil {
		a.l.Error("failed to get member list", zap.Error(err))
		return envelope.Internal("Failed to list members", err)
	}

	return envelope.OK(c, http.StatusOK, map[string]interface{}{
		"list":    list,
		"limit":   utils.P(p.limit),
		"pageMax": utils.P(p.maxPage(count)),
		"total":   count,
	}, "")
}

func (a *App) MemberDelete(c echo.Context) error {
	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	if err = a.members().Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.NotFound("Member not found")
		}
		a.l.Error("failed to delete member", zap.String("id", id.String()), zap.Error(err))
		return envelope.Internal("Failed to delete member", err)
	}

	a.evict(c, &models.Member{ID: id})

	return envelope.OK(c, http.StatusOK, nil, "Member deleted successfully")
}

type memberRoleUpdateRequest struct {
	Role string `json:"role"`
}

func (a *App) MemberRoleUpdate(c echo.Context) error {
	rctx := c.Request().Context()

	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	// 绑定请求体
	var req memberRoleUpdateRequest
	if err = c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		return envelope.Validation("Role must be one of admin, alumni, student")
	}

	// 从数据库中获得指定的成员
	p, err := a.members().FindByID(rctx, id)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.NotFound("Member not found")
		}
		a.l.Error("failed to get member", zap.String("id", id.String()), zap.Error(err))
		return envelope.Internal("Failed to update role", err)
	}
	member := p.(*models.Member)
	member.Role = role

	if err = a.members().UpdateProfile(rctx, member); err != nil {
		// 查询之后可能已经被删除
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.NotFound("Member not found")
		}
		a.l.Error("failed to update member", zap.String("id", id.String()), zap.Error(err))
		return envelope.Internal("Failed to update role", err)
	}

	// 角色写在访问令牌里，直到令牌过期都不会变；缓存里的需要马上清除
	a.evict(c, member)

	return envelope.OK(c, http.StatusOK, member, "Role updated successfully")
}
