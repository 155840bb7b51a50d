package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"photoshare/internal/config"
	"photoshare/internal/model"
	"photoshare/internal/pkg/mailer"
	mysqlClient "photoshare/internal/platform/mysql"
	rabbitmqClient "photoshare/internal/platform/rabbitmq"
	redisClient "photoshare/internal/platform/redis"
	"photoshare/internal/storage"
	"photoshare/internal/worker"
)

// App holds every externally-owned resource, constructed once at startup and
// released in Close. Nothing here is created lazily at import time.
type App struct {
	Config      *config.Config
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Storage     *storage.MinIOStorage
	EmailWorker *worker.EmailWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Image{}, &model.Tag{}, &model.Comment{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	objectStorage, err := storage.NewMinIOStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	smtpMailer := mailer.NewMailer(cfg.Email)
	emailWorker := worker.NewEmailWorker(mqConn, smtpMailer, cfg.RabbitMQ.EmailQueue, cfg.App.BaseURL)
	if err := emailWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start email worker failed: %w", err)
	}

	return &App{
		Config:      cfg,
		MySQL:       mysqlDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		Storage:     objectStorage,
		EmailWorker: emailWorker,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EmailWorker != nil {
		a.EmailWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
