package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/middlewares"
	"alumni-network/app/server/models"
	"alumni-network/app/server/principals"
	"errors"
	"fmt"
	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"unicode/utf8"
)

// reload 从存储中读取完整的记录，上下文中的身份可能来自缓存并且不带认证字段
func (a *App) reload(c echo.Context) (models.Principal, principals.Store, error) {
	p, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		return nil, nil, envelope.Unauthorized("Authentication required")
	}

	store := a.dir.Store(p.PrincipalKind())
	if store == nil {
		return nil, nil, envelope.Unauthorized("Authentication required")
	}

	fresh, err := store.FindByID(c.Request().Context(), p.PrincipalID())
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return nil, nil, envelope.NotFound("Account not found")
		}
		a.l.Error("failed to reload principal", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return nil, nil, envelope.Internal("Failed to load account", err)
	}

	return fresh, store, nil
}

func (a *App) evict(c echo.Context, p models.Principal) {
	if err := middlewares.EvictPrincipal(c.Request().Context(), a.rdb, p.PrincipalKind(), p.PrincipalID()); err != nil {
		a.l.Error("failed to evict principal cache", zap.String("id", p.PrincipalID().String()), zap.Error(err))
	}
}

// Me 返回当前身份，成员和管理员都可以
func (a *App) Me(c echo.Context) error {
	p, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		return envelope.Unauthorized("Authentication required")
	}

	return envelope.OK(c, http.StatusOK, withKind(p, nil), "")
}

func (a *App) ProfileGet(c echo.Context) error {
	p, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		return envelope.Unauthorized("Authentication required")
	}

	return envelope.OK(c, http.StatusOK, p, "")
}

type memberProfileInput struct {
	Name           *string   `json:"name"`
	Avatar         *string   `json:"avatar"`
	Bio            *string   `json:"bio"`
	Company        *string   `json:"company"`
	JobTitle       *string   `json:"jobTitle"`
	GraduationYear *int      `json:"graduationYear"`
	Skills         *[]string `json:"skills"`
}

func (a *App) memberMapFields(req *memberProfileInput, member *models.Member) error {
	if req.Name != nil {
		member.Name = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		member.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		member.Bio = *req.Bio
	}
	if req.Company != nil {
		member.Company = *req.Company
	}
	if req.JobTitle != nil {
		member.JobTitle = *req.JobTitle
	}
	if req.GraduationYear != nil {
		if *req.GraduationYear < 0 {
			return envelope.Validation("Invalid graduation year")
		}
		member.GraduationYear = *req.GraduationYear
	}
	if req.Skills != nil {
		member.Skills = pq.StringArray(*req.Skills)
	}
	return nil
}

type adminProfileInput struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (a *App) ProfileUpdate(c echo.Context) error {
	p, store, err := a.reload(c)
	if err != nil {
		return err
	}

	// 绑定请求体，按身份类型映射字段
	switch v := p.(type) {
	case *models.Member:
		var req memberProfileInput
		if err = c.Bind(&req); err != nil {
			return envelope.Validation("Invalid request body")
		}
		if err = a.memberMapFields(&req, v); err != nil {
			return err
		}
	case *models.Admin:
		var req adminProfileInput
		if err = c.Bind(&req); err != nil {
			return envelope.Validation("Invalid request body")
		}
		if req.Name != nil {
			v.Name = strings.TrimSpace(*req.Name)
		}
		if req.Avatar != nil {
			v.Avatar = *req.Avatar
		}
	}

	// 更新资料
	if err = store.UpdateProfile(c.Request().Context(), p); err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.NotFound("Account not found")
		}
		a.l.Error("failed to update profile", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to update profile", err)
	}

	a.evict(c, p)

	return envelope.OK(c, http.StatusOK, p, "Profile updated successfully")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (a *App) ChangePassword(c echo.Context) error {
	// 绑定请求体
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return envelope.Validation("Old and new password are required")
	}
	if utf8.RuneCountInString(req.NewPassword) < constants.PasswordMinLength {
		return envelope.Validation(fmt.Sprintf("Password must be at least %d characters long", constants.PasswordMinLength))
	}

	p, store, err := a.reload(c)
	if err != nil {
		return err
	}

	// 校验旧密码
	if match, err := argon2id.ComparePasswordAndHash(req.OldPassword, p.Credentials().Password); err != nil {
		a.l.Error("failed to compare password", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to change password", err)
	} else if !match {
		return envelope.Unauthorized("Old password is incorrect")
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.NewPassword, a.argon)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return envelope.Internal("Failed to change password", err)
	}

	if err = store.ReplacePassword(c.Request().Context(), p.PrincipalID(), passwordHash); err != nil {
		a.l.Error("failed to replace password", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to change password", err)
	}

	return envelope.OK(c, http.StatusOK, nil, "Password changed successfully")
}
