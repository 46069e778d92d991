package constants

import "time"

const APIPrefix = "/api/v1"

// Cookie
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
)

// 找回密码
const (
	OTPDigits         = 6
	OTPExpire         = 15 * time.Minute
	OTPMaxRequests    = 5 // 每个邮箱在 CacheExpireOTPRequests 内最多申请的次数
	PasswordMinLength = 6
)

// 公开的认证接口的限流（每个 IP）
const (
	PublicRateLimit       = 10 // 每秒
	PublicRateLimitBurst  = 30
	PublicRateLimitExpire = 3 * time.Minute
)
