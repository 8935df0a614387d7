package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/order"
	"storefront/internal/queue"
	"storefront/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "order placement API, event relay and payment consumer",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the payment status consumer",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "relay",
				Usage:  "forward order events from the Redis stream to Kafka",
				Action: relay,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront exited")
	}
}

func bootstrap() (config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg config.AppConfig) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// openDB 连接 SQLite 并自动建表。
func openDB(cfg config.AppConfig) (*gorm.DB, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newRedis(ctx context.Context, cfg config.AppConfig) *rd.Client {
	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// 限流与事件投递都允许降级，这里只告警。
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis ping failed")
	}
	return rdb
}

func migrate(*cli.Context) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	if _, err := openDB(cfg); err != nil {
		return err
	}
	log.WithField("db", cfg.DBPath).Info("schema up to date")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	rdb := newRedis(ctx, cfg)
	defer rdb.Close()

	rates := order.DeliveryRates{
		MetroZone: cfg.MetroZone,
		Metro:     cfg.MetroDeliveryCharge,
		Other:     cfg.OtherDeliveryCharge,
	}
	orders := order.NewService(db, rates, queue.NewStreamSink(rdb, cfg.OrderEventStream))

	if len(cfg.KafkaBrokers) > 0 {
		consumer := queue.NewPaymentConsumer(cfg.KafkaBrokers, cfg.PaymentTopic, cfg.PaymentGroupID, orders)
		defer consumer.Close()
		go consumer.Run(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	router.Setup(r, router.Deps{
		Orders:  orders,
		Catalog: catalog.NewService(db),
		Redis:   rdb,
		Config:  cfg,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func relay(c *cli.Context) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("relay needs KAFKA_BROKERS")
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := newRedis(ctx, cfg)
	defer rdb.Close()
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.OrderEventTopic)
	defer producer.Close()

	return queue.NewRelay(rdb, producer, cfg.OrderEventStream, cfg.OrderEventGroup, cfg.OrderEventConsumer).Run(ctx)
}
