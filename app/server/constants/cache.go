package constants

import "time"

const (
	CacheKeyPrincipal   = "alumni:principal:%s:%s" // kind, id
	CacheKeyOTPRequests = "alumni:otp:requests:%s" // email
)

const (
	CacheExpirePrincipal   = 10 * time.Minute
	CacheExpireOTPRequests = 15 * time.Minute
)
