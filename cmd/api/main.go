package main

import (
	"context"
	"expvar"
	"log"
	"os"
	"runtime"
	"time"

	"ittr/internal/auth"
	"ittr/internal/billing"
	"ittr/internal/db"
	"ittr/internal/domain/storage"
	"ittr/internal/events"
	"ittr/internal/lock"
	"ittr/internal/mailer"
	"ittr/internal/payments"
	"ittr/internal/ratelimiter"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a console zap logger; colour is off in production.
func NewLogger(level, env string) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), lvl)

	return zap.New(core).Sugar().With("service", "ittr-payments"), nil
}

var version = "1.0.0"

//	@title			ITTR Payments API
//	@description	Payment generation and gateway reconciliation for the ITTR language course platform.

//	@contact.name	API Support

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	// .env is optional; real deployments use the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := loadConfig()

	logger, err := NewLogger(cfg.logLevel, cfg.env)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	switch {
	case cfg.midtrans.serverKey == "":
		logger.Fatal("MIDTRANS_SERVER_KEY is required")
	case cfg.db.addr == "":
		logger.Fatal("DB_ADDR is required")
	case cfg.auth.token.secret == "":
		logger.Fatal("AUTH_TOKEN_SECRET is required")
	}

	// Database
	if cfg.db.migrate {
		if err := db.Migrate(cfg.db.addr); err != nil {
			logger.Fatalw("database migration failed", "error", err.Error())
		}
		logger.Info("database migrations applied")
	}

	pool, err := db.New(cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	//storage
	store := storage.NewContainer(pool)

	gateway := payments.NewMidtransAdapter(cfg.midtrans.serverKey, cfg.midtrans.isProduction)

	// Per-student lock: redis when several replicas run, in-process otherwise
	var locker lock.Locker = lock.NewLocalLocker()
	var rdb *redis.Client
	if cfg.redis.addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.redis.addr, Password: cfg.redis.password})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatalw("redis unreachable", "addr", cfg.redis.addr, "error", err.Error())
		}
		locker = lock.NewRedisLocker(rdb, 30*time.Second, logger.With("component", "lock"))
		logger.Infow("using redis locks", "addr", cfg.redis.addr)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.kafka.brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.kafka.brokers, cfg.kafka.topic, logger.With("component", "kafka"))
		logger.Infow("publishing payment events", "brokers", cfg.kafka.brokers, "topic", cfg.kafka.topic)
	}

	var mailClient mailer.Client
	if cfg.mail.host != "" {
		smtp, err := mailer.NewSMTPMailer(cfg.mail.host, cfg.mail.port, cfg.mail.username, cfg.mail.password, cfg.mail.fromEmail)
		if err != nil {
			logger.Fatal(err)
		}
		mailClient = smtp
	}

	notifier := billing.NewFanoutNotifier(publisher, mailClient, logger.With("component", "notifier"))

	svc := billing.NewService(store, gateway, locker, logger.With("component", "billing"),
		billing.Config{OrderPrefix: cfg.midtrans.orderPrefix},
		billing.WithNotifier(notifier),
	)

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		db:            store,
		billing:       svc,
		logger:        logger,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]int64{
			"total_conns":    int64(s.TotalConns()),
			"idle_conns":     int64(s.IdleConns()),
			"acquired_conns": int64(s.AcquiredConns()),
			"max_conns":      int64(s.MaxConns()),
			"acquire_count":  s.AcquireCount(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	bgCtx, stopBackground := context.WithCancel(context.Background())
	app.reconcileStalePayments(bgCtx)

	mux := app.mount()

	err = app.run(mux, func() {
		stopBackground()
		notifier.Wait()
		if err := publisher.Close(); err != nil {
			logger.Warnw("closing publisher", "error", err.Error())
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	})
	if err != nil {
		logger.Fatal(err)
	}
}
