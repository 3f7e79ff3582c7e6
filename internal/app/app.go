// Package app wires configuration into the storage backends and services
// shared by every binary.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/config"
	"github.com/hackgods/clinic-appointment-triage/internal/db"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-triage/internal/redis"
	"github.com/hackgods/clinic-appointment-triage/internal/storage/memory"
)

type App struct {
	Config config.Config
	Log    *zap.Logger

	PgPool *pgxpool.Pool
	Redis  *redis.Client
	Locker redisclient.Locker

	Metrics       *metrics.Recorder
	Notifications *notification.Dispatcher
	Appointments  *appointment.Service
	Emergencies   *emergency.Queue
	Sweeper       *appointment.Sweeper
}

type repositories struct {
	appointments  appointment.Repository
	emergencies   emergency.Repository
	notifications notification.Repository
	tx            interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
}

// New connects the configured backends and builds the services. Close
// releases what it opened.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.NewRecorder(),
	}

	var repos repositories
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		a.PgPool = pool
		log.Info("connected to Postgres")

		repos = repositories{
			appointments:  appointment.NewPgRepository(pool),
			emergencies:   emergency.NewPgRepository(pool),
			notifications: notification.NewPgRepository(pool),
			tx:            db.NewTransactor(pool),
		}

	default:
		store := memory.New()
		repos = repositories{
			appointments:  store,
			emergencies:   store,
			notifications: store,
			tx:            store,
		}
		log.Warn("using in-memory storage, data is lost on exit")
	}

	var publisher notification.Publisher
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		a.Redis = rdb
		a.Locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		publisher = redisclient.NewStreamPublisher(rdb, cfg.NotificationStream)
		log.Info("connected to Redis", zap.String("notification_stream", cfg.NotificationStream))
	} else {
		a.Locker = redisclient.NewLocalLocker()
		log.Warn("redis disabled, slot locks are process-local")
	}

	a.Notifications = notification.NewDispatcher(repos.notifications, publisher, a.Metrics, log)
	a.Appointments = appointment.NewService(appointment.Deps{
		Repo:     repos.appointments,
		Tx:       repos.tx,
		Locker:   a.Locker,
		Notifier: a.Notifications,
		Metrics:  a.Metrics,
		Log:      log,
		Clock:    cfg.ClinicNow,
	})
	a.Emergencies = emergency.NewQueue(repos.emergencies, repos.tx, a.Notifications, a.Metrics, log)
	a.Sweeper = appointment.NewSweeper(a.Appointments, a.Locker, cfg.SweepCutoffHour)

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("error closing redis", zap.Error(err))
		}
	}
	if a.PgPool != nil {
		a.PgPool.Close()
	}
}
