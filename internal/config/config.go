package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AppConfig 聚合运行时配置，全部通过环境变量注入。
type AppConfig struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	DBPath   string `envconfig:"DB_PATH" default:"storefront.db?_busy_timeout=5000&_txlock=immediate&_foreign_keys=1"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	// Kafka brokers (comma separated), outbound order events and inbound payment updates.
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OrderEventTopic string   `envconfig:"ORDER_EVENT_TOPIC" default:"storefront-order-events"`
	PaymentTopic    string   `envconfig:"PAYMENT_TOPIC" default:"storefront-payments"`
	PaymentGroupID  string   `envconfig:"PAYMENT_GROUP_ID" default:"storefront-payment-consumer"`

	// Redis Stream outbox: the API appends, the relay forwards to Kafka.
	OrderEventStream   string `envconfig:"ORDER_EVENT_STREAM" default:"storefront:order_events"`
	OrderEventGroup    string `envconfig:"ORDER_EVENT_GROUP" default:"storefront-relay-group"`
	OrderEventConsumer string `envconfig:"ORDER_EVENT_CONSUMER" default:"storefront-relay-1"`

	// 下单接口限流
	OrderRateLimit  int           `envconfig:"ORDER_RATE_LIMIT" default:"20"`
	OrderRateWindow time.Duration `envconfig:"ORDER_RATE_WINDOW" default:"1m"`

	// Two-tier flat delivery table.
	MetroZone           string          `envconfig:"METRO_ZONE" default:"dhaka"`
	MetroDeliveryCharge decimal.Decimal `envconfig:"METRO_DELIVERY_CHARGE" default:"70"`
	OtherDeliveryCharge decimal.Decimal `envconfig:"OTHER_DELIVERY_CHARGE" default:"130"`
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, errors.Wrap(err, "process env")
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.MetroZone = strings.ToLower(strings.TrimSpace(cfg.MetroZone))

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the service relies on.
func (c AppConfig) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.OrderRateLimit <= 0 {
		return errors.New("ORDER_RATE_LIMIT must be > 0")
	}
	if c.OrderRateWindow < time.Second {
		return errors.New("ORDER_RATE_WINDOW must be >= 1s")
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must not be empty")
	}
	if c.OrderEventTopic == "" {
		return errors.New("ORDER_EVENT_TOPIC must not be empty")
	}
	if c.PaymentTopic == "" {
		return errors.New("PAYMENT_TOPIC must not be empty")
	}
	if c.PaymentGroupID == "" {
		return errors.New("PAYMENT_GROUP_ID must not be empty")
	}
	if c.OrderEventStream == "" {
		return errors.New("ORDER_EVENT_STREAM must not be empty")
	}
	if c.OrderEventGroup == "" {
		return errors.New("ORDER_EVENT_GROUP must not be empty")
	}
	if c.OrderEventConsumer == "" {
		return errors.New("ORDER_EVENT_CONSUMER must not be empty")
	}
	if c.MetroZone == "" {
		return errors.New("METRO_ZONE must not be empty")
	}
	if c.MetroDeliveryCharge.IsNegative() || c.OtherDeliveryCharge.IsNegative() {
		return errors.New("delivery charges must be >= 0")
	}
	return nil
}

// compact 去掉空白的 broker 地址。
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
