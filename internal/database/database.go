package database

import (
	"time"

	"storefront/internal/model"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 连接 SQLite。DSN 建议带上 _txlock=immediate 与 _busy_timeout，
// 这样并发下单的事务会排队而不是直接报 database is locked。
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewLogger(log.WithField("component", "gorm"), gormlogger.Warn, 200*time.Millisecond),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "db open")
	}
	return db, nil
}

// Migrate 自动建表。
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.FlashSale{},
		&model.Coupon{},
		&model.Counter{},
		&model.Order{},
		&model.OrderLine{},
	)
	return errors.Wrap(err, "db migrate")
}
