package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ittr/internal/auth"
	"ittr/internal/billing"
	"ittr/internal/payments"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const (
	claimsCtx       contextKey = "claims"
	notificationCtx contextKey = "notification"
)

const maxWebhookBytes = 1_048_578

func (app *application) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		app.logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			// decode it
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			// check the credentials
			username := app.config.auth.basic.user
			hash := app.config.auth.basic.passHash

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || hash == "" ||
				subtle.ConstantTimeCompare([]byte(creds[0]), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds[1])) != nil {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
			return
		}

		claims, err := app.authenticator.ValidateToken(parts[1])
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaimsFromContext(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsCtx).(*auth.Claims)
	return claims
}

func (app *application) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := getClaimsFromContext(r)
			if claims == nil || claims.Role != role {
				app.forbiddenResponse(w, r, fmt.Errorf("role %q required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.rateLimiter.Enabled && app.rateLimiter != nil {
			key := r.RemoteAddr
			if claims := getClaimsFromContext(r); claims != nil {
				key = "user:" + claims.Subject
			}
			if allow, retryAfter := app.rateLimiter.Allow(key); !allow {
				app.rateLimitExceededResponse(w, r, retryAfter)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// MidtransSignatureMiddleware rejects any notification whose signature_key
// does not match before the handler runs. The decoded notification, with
// the verbatim body attached, is passed on through the context.
func (app *application) MidtransSignatureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("read notification: %w", err))
			return
		}

		var n payments.Notification
		if err := json.Unmarshal(body, &n); err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("malformed notification: %w", err))
			return
		}
		if strings.TrimSpace(n.OrderID) == "" {
			app.badRequestResponse(w, r, errors.New("notification has no order_id"))
			return
		}

		if err := payments.VerifySignature(n, app.config.midtrans.serverKey); err != nil {
			billing.RecordSignatureRejected()
			app.logger.Warnw("webhook signature rejected",
				"order_id", n.OrderID,
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeJSONError(w, http.StatusForbidden, "invalid signature", "")
			return
		}

		n.Raw = json.RawMessage(body)
		ctx := context.WithValue(r.Context(), notificationCtx, &n)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getNotificationFromContext(r *http.Request) *payments.Notification {
	n, _ := r.Context().Value(notificationCtx).(*payments.Notification)
	return n
}
