package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"loanflow/internal/config"
	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
	"loanflow/internal/infrastructure/logger"
)

// OpenGorm opens the database selected by cfg.DBDriver.
func OpenGorm(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dial = sqlite.Open(cfg.SQLitePath)
	case config.DriverMySQL:
		dial = mysql.Open(cfg.MySQLDSN())
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}

	db, err := OpenGormWithDialector(dial, logger.NewGorm(log, logger.GormLevel(cfg.LogLevel)))
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	log.Info("gorm: connected", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// OpenGormWithDialector applies pool settings and pings. A nil logger keeps gorm silent.
func OpenGormWithDialector(dial gorm.Dialector, l gormlogger.Interface) (*gorm.DB, error) {
	if l == nil {
		l = gormlogger.Discard
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:               l,
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Ping probes the underlying connection pool; used by the health check.
func Ping(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Migrate creates or updates the loan tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&loan.Loan{}, &transition.Record{})
}
