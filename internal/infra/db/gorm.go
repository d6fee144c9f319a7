package db

import (
	"fmt"

	"app/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect は設定からDSNを組み立てて *gorm.DB を返す。
// 接続情報はconfig.Loadで検証済みのものだけを使う。
func Connect(cfg config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{})
}

func dsn(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword,
		cfg.PostgresDB, cfg.PostgresSSLMode,
	)
}
