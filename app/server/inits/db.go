package inits

import (
	"alumni-network/app/server/config"
	"alumni-network/app/server/models"
	"alumni-network/app/server/principals"
	"fmt"
	"github.com/alexedwards/argon2id"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func DB(cfg *config.Config, l *zap.Logger) (db *gorm.DB, err error) {
	// 打开连接
	if db, err = gorm.Open(postgres.Open(cfg.System.DBConnectionString), &gorm.Config{
		SkipDefaultTransaction: true, // 每次写入都是单条语句
		TranslateError:         true, // 唯一约束冲突转换为 gorm.ErrDuplicatedKey
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 迁移
	if err = mig(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 初始化启动数据
	if err = initData(db, cfg, l); err != nil {
		return nil, fmt.Errorf("failed to init data into database: %w", err)
	}

	// 返回
	return db, nil
}

func mig(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Member{},
		&models.Admin{},
	)
}

func initData(db *gorm.DB, cfg *config.Config, l *zap.Logger) (err error) {
	// 查询现有记录数量
	var counter int64

	// 初始化管理员
	if err = db.Model(&models.Admin{}).Count(&counter).Error; err != nil {
		return fmt.Errorf("failed to get admin count: %w", err)
	} else if counter > 0 {
		return nil
	}

	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		l.Warn("no administrator exists and ADMIN_EMAIL / ADMIN_PASSWORD are not set")
		return nil
	}

	email := principals.NormalizeEmail(cfg.Seed.AdminEmail)
	if !principals.ValidEmail(email) {
		return fmt.Errorf("ADMIN_EMAIL %q is not a valid address", cfg.Seed.AdminEmail)
	}

	// 创建密码
	var password string
	if password, err = argon2id.CreateHash(cfg.Seed.AdminPassword, argon2id.DefaultParams); err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}

	// 插入记录
	admin := models.Admin{
		Email: email,
		Name:  cfg.Seed.AdminName,
	}
	admin.Password = password
	if err = db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	l.Info("initial administrator created", zap.String("email", admin.Email))

	// 已有数据或全部导入成功
	return nil
}
