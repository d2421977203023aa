package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ittr/docs" //this is required to generate swagger docs
	"ittr/internal/auth"
	"ittr/internal/billing"
	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"
	"ittr/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// paymentService is the billing surface the handlers use.
type paymentService interface {
	Generate(ctx context.Context, in billing.GenerateInput) (*billing.GenerateResult, error)
	Webhook(ctx context.Context, n payments.Notification) (paymentsrepo.Status, error)
	RefreshByOrder(ctx context.Context, orderID string) (*billing.RefreshResult, error)
	RefreshByStudent(ctx context.Context, studentID string) (*billing.BatchResult, error)
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*billing.BatchResult, error)
	History(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error)
	HistoryAll(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error)
	Detail(ctx context.Context, orderID string) (*billing.Detail, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type application struct {
	config        config
	db            pinger
	billing       paymentService
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
}

type config struct {
	addr        string
	env         string
	apiURL      string
	logLevel    string
	db          dbConfig
	midtrans    midtransConfig
	auth        authConfig
	redis       redisConfig
	kafka       kafkaConfig
	mail        mailConfig
	reconcile   reconcileConfig
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	secret string
	iss    string
}
type basicConfig struct {
	user     string
	passHash string // bcrypt
}

type midtransConfig struct {
	serverKey    string
	isProduction bool
	orderPrefix  string
}

type redisConfig struct {
	addr     string
	password string
}

type kafkaConfig struct {
	brokers []string
	topic   string
}

type mailConfig struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

type reconcileConfig struct {
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
	migrate     bool
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(app.requestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/payments", func(r chi.Router) {
			// The gateway cannot present a session; the signature is its only credential.
			r.With(app.MidtransSignatureMiddleware).Post("/webhook", app.paymentWebhookHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)

				r.With(app.RateLimiterMiddleware).Post("/generate", app.generatePaymentHandler)
				r.Get("/history/{studentID}", app.studentPaymentHistoryHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.RequireRole(auth.RoleAdmin))
					r.Get("/history", app.listPaymentsHandler)
					r.Get("/orders/{orderID}", app.paymentDetailHandler)
					r.Put("/refresh/{studentID}", app.refreshStudentPaymentsHandler)
					r.Put("/refresh", app.refreshOrderPaymentHandler)
				})
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler, onShutdown func()) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		err := srv.Shutdown(ctx)
		if onShutdown != nil {
			onShutdown()
		}
		shutdown <- err
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
