// Package app wires the ficore components from a configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ficoreafrica/ficore/audit"
	"github.com/ficoreafrica/ficore/internal/config"
	"github.com/ficoreafrica/ficore/reconcile"
	"github.com/ficoreafrica/ficore/reminders"
	"github.com/ficoreafrica/ficore/store"
)

// App holds the process-wide components. Build it once with New and release
// it with Close.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Client    *mongo.Client
	Store     *store.Store
	Audit     *audit.Recorder
	Reminders *reminders.Handler
}

// New connects to MongoDB and builds every component. It does not touch the
// schema; call Init for that.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store()
	client, err := store.Connect(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	db := client.Database(cfg.Mongo.Database)
	st := store.New(db, sc, logger)

	sink, err := newSink(ctx, cfg, db)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	rec := audit.New(sink, logger, cfg.AuditTimeout())
	return &App{
		Config:    cfg,
		Logger:    logger,
		Client:    client,
		Store:     st,
		Audit:     rec,
		Reminders: reminders.NewHandler(st, nil, logger).WithRecorder(rec),
	}, nil
}

func newSink(ctx context.Context, cfg config.Config, db *mongo.Database) (audit.Sink, error) {
	switch cfg.Audit.Sink {
	case config.SinkDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return audit.NewDynamoSink(dynamodb.NewFromConfig(awsCfg), audit.DynamoConfig{
			Table:     cfg.Audit.Table,
			NumShards: cfg.Audit.Shards,
			TTL:       cfg.AuditTTL(),
		}), nil
	case config.SinkNone:
		return audit.Discard, nil
	default:
		return audit.NewMongoSink(db), nil
	}
}

// Init reconciles collections and indexes with the schema registry and
// bootstraps the admin account when a password is configured. A schema
// conflict is fatal.
func (a *App) Init(ctx context.Context) (reconcile.Report, error) {
	r := reconcile.New(reconcile.NewMongoCatalog(a.Store.Database()), a.Store.Registry(), a.Logger)
	report, err := r.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("reconcile schema: %w", err)
	}

	admin := a.Config.Admin
	if admin.Password == "" {
		a.Logger.WarnContext(ctx, "admin password not set; skipping admin bootstrap")
		return report, nil
	}
	if err := a.Store.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password); err != nil {
		return report, fmt.Errorf("bootstrap admin: %w", err)
	}
	return report, nil
}

// Close disconnects from MongoDB.
func (a *App) Close(ctx context.Context) error {
	if err := a.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
