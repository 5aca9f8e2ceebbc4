package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/blob"
	"github.com/iliyamo/rental-listing/internal/config"   // Internal config loader
	"github.com/iliyamo/rental-listing/internal/database" // MySQL connection and bootstrap DDL
	"github.com/iliyamo/rental-listing/internal/handler"
	"github.com/iliyamo/rental-listing/internal/identity"
	"github.com/iliyamo/rental-listing/internal/kv"
	"github.com/iliyamo/rental-listing/internal/logger"
	"github.com/iliyamo/rental-listing/internal/metrics"
	"github.com/iliyamo/rental-listing/internal/queue"
	"github.com/iliyamo/rental-listing/internal/repository"
	"github.com/iliyamo/rental-listing/internal/router" // Internal router setup
	"github.com/iliyamo/rental-listing/internal/service"
	"github.com/iliyamo/rental-listing/internal/validate"
)

func main() {
	cfg := config.Load() // Load environment config

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// backends holds the storage chosen by STORE_BACKEND.
type backends struct {
	store    kv.Store
	accounts identity.AccountStore
	sessions identity.SessionStore
	probes   []handler.Probe
	closers  []func() error
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range b.closers {
			_ = c()
		}
	}()

	m := metrics.New()
	users := repository.NewUserRepo(b.store)
	props := repository.NewPropertyRepo(b.store)

	events := newPublisher(cfg, log)
	defer func() { _ = events.Close() }()
	if cfg.EventsEnabled && cfg.EventsConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, "", log.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("listing consumer stopped", zap.Error(err))
			}
		}()
	}

	provider := identity.NewLocal(b.accounts, b.sessions, cfg.JWTSecret, cfg.AccessTTL, cfg.BcryptCost)
	gw := identity.NewGateway(provider, users, events, log.Named("identity"), cfg.HandleDomain)

	blobStore, files, err := openBlobStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	uploader := blob.NewUploader(blobStore, cfg.SignedURLTTL, cfg.MaxUploadBytes)

	e := router.New(router.Deps{
		Auth:           handler.NewAuthHandler(gw, m),
		Users:          handler.NewUserHandler(users),
		Uploads:        handler.NewUploadHandler(uploader, m),
		Properties:     handler.NewPropertyHandler(props, events, m, validate.PropertyRules{StrictRentDays: cfg.StrictRentDays}),
		Files:          files,
		Authenticator:  gw,
		Metrics:        m,
		Log:            log,
		Prefix:         cfg.APIPrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Probes:         b.probes,
	})

	addr := ":" + cfg.Port // Address string with port
	log.Info("listening",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreBackend),
		zap.String("blob", cfg.BlobBackend),
		zap.Bool("events", cfg.EventsEnabled))

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return &backends{
			store:    kv.NewMemory(),
			accounts: identity.NewMemoryAccounts(),
			sessions: identity.NewMemorySessions(),
		}, nil

	case config.StoreRedis:
		client, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, err
		}
		// Accounts and sessions keep living in MySQL when it is configured,
		// otherwise in memory next to the redis listing store.
		b := &backends{
			store:   kv.NewRedis(client, cfg.RedisPrefix),
			probes:  []handler.Probe{{Name: "redis", Check: redisPing(client)}},
			closers: []func() error{client.Close},
		}
		if cfg.DBHost != "" {
			db, err := openMySQL(ctx, cfg)
			if err != nil {
				_ = client.Close()
				return nil, err
			}
			b.accounts, b.sessions = identity.NewMySQLAccounts(db), identity.NewMySQLSessions(db)
			b.probes = append(b.probes, handler.Probe{Name: "mysql", Check: db.PingContext})
			b.closers = append(b.closers, db.Close)
		} else {
			log.Warn("redis store without DB_HOST: accounts are kept in memory")
			b.accounts, b.sessions = identity.NewMemoryAccounts(), identity.NewMemorySessions()
		}
		return b, nil

	default:
		db, err := openMySQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backends{
			store:    kv.NewMySQL(db),
			accounts: identity.NewMySQLAccounts(db),
			sessions: identity.NewMySQLSessions(db),
			probes:   []handler.Probe{{Name: "mysql", Check: db.PingContext}},
			closers:  []func() error{db.Close},
		}, nil
	}
}

func openMySQL(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func redisPing(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// openBlobStore returns the configured store and, for the local backend,
// the handler serving its signed URLs.
func openBlobStore(ctx context.Context, cfg config.Config, log *zap.Logger) (blob.Store, *handler.FilesHandler, error) {
	if cfg.BlobBackend == config.BlobMinIO {
		s, err := blob.NewMinIOStore(blob.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		}, log.Named("minio"))
		if err != nil {
			return nil, nil, err
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.EnsureBucket(bucketCtx); err != nil {
			return nil, nil, err
		}
		if cfg.SignedURLTTL > blob.MaxPresignTTL {
			log.Warn("SIGNED_URL_TTL exceeds what presigned URLs support; clamping",
				zap.Duration("requested", cfg.SignedURLTTL), zap.Duration("used", blob.MaxPresignTTL))
		}
		return s, nil, nil
	}
	local := blob.NewLocalStore(cfg.BlobDir, cfg.PublicBaseURL, cfg.JWTSecret)
	return local, handler.NewFilesHandler(local), nil
}

func newPublisher(cfg config.Config, log *zap.Logger) service.Publisher {
	if !cfg.EventsEnabled {
		return service.NopPublisher{}
	}
	return service.NewRabbitPublisher(cfg.RabbitMQURL, log.Named("events"))
}
