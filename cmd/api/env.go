package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ittr/internal/ratelimiter"
)

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerTimeFrame: getEnvAsInt("RATELIMITER_REQUESTS_COUNT", 20),
		TimeFrame:            time.Minute,
		Enabled:              getEnvAsBool("RATE_LIMITER_ENABLED", true),
	}
}

func loadConfig() config {
	return config{
		addr:     getEnv("ADDR", ":8080"),
		env:      getEnv("ENV", "development"),
		apiURL:   getEnv("EXTERNAL_URL", "localhost:8080"),
		logLevel: getEnv("LOG_LEVEL", "info"),
		db: dbConfig{
			addr:        getEnv("DB_ADDR", ""),
			maxConns:    int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			maxIdleTime: getEnv("DB_MAX_IDLE_TIME", "15m"),
			migrate:     getEnvAsBool("DB_MIGRATE", true),
		},
		midtrans: midtransConfig{
			serverKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			isProduction: strings.EqualFold(getEnv("MIDTRANS_ENV", "sandbox"), "production"),
			orderPrefix:  getEnv("MIDTRANS_ORDER_PREFIX", "ITTR"),
		},
		auth: authConfig{
			basic: basicConfig{
				user:     getEnv("AUTH_BASIC_USER", "admin"),
				passHash: getEnv("AUTH_BASIC_PASS_HASH", ""),
			},
			token: tokenConfig{
				secret: getEnv("AUTH_TOKEN_SECRET", ""),
				iss:    getEnv("AUTH_TOKEN_ISS", "ittr"),
			},
		},
		redis: redisConfig{
			addr:     getEnv("REDIS_ADDR", ""),
			password: getEnv("REDIS_PASSWORD", ""),
		},
		kafka: kafkaConfig{
			brokers: getEnvAsList("KAFKA_BROKERS"),
			topic:   getEnv("KAFKA_PAYMENT_TOPIC", "payments.status"),
		},
		mail: mailConfig{
			host:      getEnv("SMTP_HOST", ""),
			port:      getEnvAsInt("SMTP_PORT", 587),
			username:  getEnv("SMTP_USER", ""),
			password:  getEnv("SMTP_PASS", ""),
			fromEmail: getEnv("MAIL_FROM", ""),
		},
		reconcile: reconcileConfig{
			interval:   getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
			staleAfter: getEnvAsDuration("RECONCILE_STALE_AFTER", 30*time.Minute),
			batchSize:  getEnvAsInt("RECONCILE_BATCH_SIZE", 50),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}
}
