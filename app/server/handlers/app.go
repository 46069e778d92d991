package handlers

import (
	"alumni-network/app/server/jwt"
	"alumni-network/app/server/metrics"
	"alumni-network/app/server/notify"
	"alumni-network/app/server/principals"
	"github.com/alexedwards/argon2id"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"time"
)

type App struct {
	l      *zap.Logger           // 日志
	rdb    *redis.Client         // Redis ，用于缓存和限流
	jwt    *jwt.JWT              // JWT ，访问令牌无状态验证，刷新令牌还需要和数据库中的比对
	dir    *principals.Directory // 成员和管理员的存储
	notify notify.Dispatcher     // 发送找回密码的验证码
	mtr    *metrics.Auth         // 认证相关的计数
	mp     *metrics.Provider     // 计数的读取端，为空时不提供快照接口
	argon  *argon2id.Params      // 密码哈希参数
	secure bool                  // cookie 是否带 Secure 标记
	now    func() time.Time      // 当前时间，测试时替换
}

func NewApp(l *zap.Logger, rdb *redis.Client, j *jwt.JWT, dir *principals.Directory, n notify.Dispatcher, mtr *metrics.Auth, mp *metrics.Provider, secure bool) *App {
	return &App{
		l:      l,
		rdb:    rdb,
		jwt:    j,
		dir:    dir,
		notify: n,
		mtr:    mtr,
		mp:     mp,
		argon:  argon2id.DefaultParams,
		secure: secure,
		now:    time.Now,
	}
}
