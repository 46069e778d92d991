package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/metrics"
	"alumni-network/app/server/models"
	"alumni-network/app/server/principals"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"math/big"
	"net/http"
	"strings"
	"unicode/utf8"
)

func generateOTP() (string, error) {
	var b strings.Builder
	b.Grow(constants.OTPDigits)

	max := big.NewInt(10)
	for i := 0; i < constants.OTPDigits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// allowOTPRequest 固定窗口计数，第一次请求时设置过期
func (a *App) allowOTPRequest(ctx context.Context, email string) (bool, error) {
	key := fmt.Sprintf(constants.CacheKeyOTPRequests, email)

	count, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err = a.rdb.Expire(ctx, key, constants.CacheExpireOTPRequests).Err(); err != nil {
			return false, err
		}
	}

	return count <= constants.OTPMaxRequests, nil
}

// findByValidOTP 在两类身份中查找验证码匹配且未过期的那一个
func (a *App) findByValidOTP(ctx context.Context, email, code string) (models.Principal, principals.Store, error) {
	now := a.now()
	return a.dir.FindByEmailWhere(ctx, email, func(p models.Principal) bool {
		return models.IsOTPValid(p, code, now)
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *App) ForgotPassword(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	email := principals.NormalizeEmail(req.Email)
	if email == "" {
		return envelope.Validation("Email is required")
	}

	// 限流，Redis 出问题时不影响找回密码
	if allowed, err := a.allowOTPRequest(rctx, email); err != nil {
		a.l.Error("failed to count otp requests", zap.String("email", email), zap.Error(err))
	} else if !allowed {
		a.mtr.OTPRequest(rctx, "unknown", metrics.OutcomeFailure)
		return envelope.TooManyRequests("Too many OTP requests, please try again later")
	}

	p, store, err := a.dir.FindByEmail(rctx, email)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			a.mtr.OTPRequest(rctx, "unknown", metrics.OutcomeFailure)
			return envelope.NotFound("No account found with this email")
		}
		a.l.Error("failed to find principal", zap.String("email", email), zap.Error(err))
		return envelope.Internal("Failed to process request", err)
	}
	kind := string(p.PrincipalKind())

	// 生成验证码
	code, err := generateOTP()
	if err != nil {
		a.l.Error("failed to generate otp", zap.Error(err))
		return envelope.Internal("Failed to generate OTP", err)
	}
	expires := a.now().Add(constants.OTPExpire)

	// 只写验证码两列，不经过资料校验
	if err = store.SetOTP(rctx, p.PrincipalID(), &code, &expires); err != nil {
		a.l.Error("failed to save otp", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to process request", err)
	}

	// 发送失败时撤回验证码
	if res := a.notify.SendOTP(rctx, email, code); !res.Success {
		if err = store.SetOTP(context.WithoutCancel(rctx), p.PrincipalID(), nil, nil); err != nil {
			a.l.Error("failed to roll back otp", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		}
		a.mtr.OTPRequest(rctx, kind, metrics.OutcomeFailure)
		return envelope.Internal("Failed to send OTP email", fmt.Errorf("dispatch otp: %s", res.Message))
	}

	a.mtr.OTPRequest(rctx, kind, metrics.OutcomeSuccess)

	return envelope.OK(c, http.StatusOK, nil, "OTP sent to your email")
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP 不消耗验证码，重置密码时会再检查一次
func (a *App) VerifyOTP(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	email := principals.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.OTP)
	if email == "" || code == "" {
		return envelope.Validation("Email and OTP are required")
	}

	if _, _, err := a.findByValidOTP(rctx, email, code); err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.Validation("Invalid or expired OTP")
		}
		a.l.Error("failed to verify otp", zap.String("email", email), zap.Error(err))
		return envelope.Internal("Failed to verify OTP", err)
	}

	return envelope.OK(c, http.StatusOK, nil, "OTP verified successfully")
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
	OTP             string `json:"otp"`
}

func (a *App) ResetPassword(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	email := principals.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.OTP)

	// 校验参数
	if email == "" || code == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return envelope.Validation("All fields are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return envelope.Validation("Passwords do not match")
	}
	if utf8.RuneCountInString(req.NewPassword) < constants.PasswordMinLength {
		return envelope.Validation(fmt.Sprintf("Password must be at least %d characters long", constants.PasswordMinLength))
	}

	p, store, err := a.findByValidOTP(rctx, email, code)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			a.mtr.PasswordReset(rctx, "unknown", metrics.OutcomeFailure)
			return envelope.Validation("Invalid or expired OTP")
		}
		a.l.Error("failed to verify otp", zap.String("email", email), zap.Error(err))
		return envelope.Internal("Failed to reset password", err)
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.NewPassword, a.argon)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return envelope.Internal("Failed to reset password", err)
	}

	// 新密码和清除验证码在同一次更新中完成
	if err = store.ReplacePassword(rctx, p.PrincipalID(), passwordHash); err != nil {
		a.l.Error("failed to replace password", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to reset password", err)
	}

	a.mtr.PasswordReset(rctx, string(p.PrincipalKind()), metrics.OutcomeSuccess)

	return envelope.OK(c, http.StatusOK, nil, "Password reset successfully")
}
