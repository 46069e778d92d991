package inits

import (
	"alumni-network/app/server/config"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func Config() (*config.Config, error) {
	var cfg config.Config

	// 手动配置映射
	{
		mode, exist := os.LookupEnv("MODE")
		cfg.System.IsProd = exist && strings.HasPrefix(strings.ToLower(mode), "p")
	}

	if listen, exist := os.LookupEnv("LISTEN"); !exist {
		cfg.System.Listen = ":8000" // 默认监听地址
	} else {
		cfg.System.Listen = listen
	}

	if dbconn, exist := os.LookupEnv("DB_CONN"); !exist {
		return nil, fmt.Errorf("DB_CONN environment variable not set")
	} else {
		cfg.System.DBConnectionString = dbconn
	}

	if redisconn, exist := os.LookupEnv("REDIS_CONN"); !exist {
		return nil, fmt.Errorf("REDIS_CONN environment variable not set")
	} else {
		cfg.System.RedisConnectionString = redisconn
	}

	if origins, exist := os.LookupEnv("CORS_ORIGINS"); !exist || strings.TrimSpace(origins) == "" {
		cfg.System.CORSOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.System.CORSOrigins = append(cfg.System.CORSOrigins, origin)
			}
		}
	}

	// 令牌
	if secret, exist := os.LookupEnv("ACCESS_TOKEN_SECRET"); !exist || secret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET environment variable not set")
	} else {
		cfg.Security.AccessTokenSecret = secret
	}

	if secret, exist := os.LookupEnv("REFRESH_TOKEN_SECRET"); !exist || secret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET environment variable not set")
	} else if secret == cfg.Security.AccessTokenSecret {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET must differ from ACCESS_TOKEN_SECRET")
	} else {
		cfg.Security.RefreshTokenSecret = secret
	}

	if expiry, exist := os.LookupEnv("ACCESS_TOKEN_EXPIRY"); !exist {
		cfg.Security.AccessTokenExpiry = 15 * time.Minute
	} else if d, err := ParseExpiry(expiry); err != nil {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	} else {
		cfg.Security.AccessTokenExpiry = d
	}

	if expiry, exist := os.LookupEnv("REFRESH_TOKEN_EXPIRY"); !exist {
		cfg.Security.RefreshTokenExpiry = 10 * 24 * time.Hour
	} else if d, err := ParseExpiry(expiry); err != nil {
		return nil, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	} else {
		cfg.Security.RefreshTokenExpiry = d
	}

	// 初始管理员，两项都有才会生效
	cfg.Seed.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.Seed.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if name, exist := os.LookupEnv("ADMIN_NAME"); !exist {
		cfg.Seed.AdminName = "Administrator"
	} else {
		cfg.Seed.AdminName = name
	}

	// 邮件
	cfg.Mail.SMTPHost = os.Getenv("SMTP_HOST")
	if portStr, exist := os.LookupEnv("SMTP_PORT"); !exist {
		cfg.Mail.SMTPPort = 587
	} else if port, err := strconv.Atoi(portStr); err != nil {
		return nil, fmt.Errorf("SMTP_PORT should be an integer")
	} else {
		cfg.Mail.SMTPPort = port
	}
	cfg.Mail.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.Mail.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.Mail.From = os.Getenv("SMTP_FROM")
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTPUsername
	}

	return &cfg, nil
}

// ParseExpiry accepts anything time.ParseDuration does, plus whole days such as "10d".
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	var (
		d   time.Duration
		err error
	)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var n int
		if n, err = strconv.Atoi(days); err == nil {
			d = time.Duration(n) * 24 * time.Hour
		}
	} else {
		d, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("expiry %q should be positive", s)
	}

	return d, nil
}
