package db

import (
	"fmt"
	"net"
	"time"

	"InterviewConv/config"
	"InterviewConv/logger"
	"InterviewConv/model"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DSN builds the MySQL connection string from the configuration.
func DSN(cfg *config.Config) string {
	c := mysqldriver.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// ConnectGormDB 建立 GORM 数据库连接
func ConnectGormDB(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// 禁用外键约束
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// conversions hold a connection only briefly between tool runs
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Successfully connected to the database with GORM.",
		logger.String("host", cfg.DBHost), logger.String("db", cfg.DBName))
	return gdb, nil
}

// CloseGormDB 关闭 GORM 数据库连接
func CloseGormDB(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 迁移录制相关的表
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&model.Recording{}, &model.RecordingMetaData{}, &model.RecordingLog{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("Models migrated successfully with GORM.")
	return nil
}
