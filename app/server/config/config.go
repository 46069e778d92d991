package config

import "time"

type Config struct {
	System struct {
		IsProd                bool     // 是否为生产环境，生产环境下 cookie 会带上 Secure 标记，且不提供 API 文档
		Listen                string   // 监听地址
		DBConnectionString    string   // Postgres 数据库的连接字符串
		RedisConnectionString string   // Redis 数据库的连接字符串（URL 格式）
		CORSOrigins           []string // 允许跨域访问的来源（管理面板和前台页面）
	}
	Security struct {
		AccessTokenSecret  string        // 访问令牌的签名密钥
		AccessTokenExpiry  time.Duration // 访问令牌有效期，应当较短
		RefreshTokenSecret string        // 刷新令牌的签名密钥，必须与访问令牌的不同，避免一个泄露影响另一个
		RefreshTokenExpiry time.Duration // 刷新令牌有效期
	}
	Seed struct {
		AdminEmail    string // 初始管理员邮箱，为空则不创建
		AdminPassword string // 初始管理员密码
		AdminName     string // 初始管理员显示名称
	}
	Mail struct {
		SMTPHost     string // 为空时只在日志中输出验证码（开发用）
		SMTPPort     int
		SMTPUsername string
		SMTPPassword string
		From         string
	}
}
