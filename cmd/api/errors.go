package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ittr/internal/billing"
	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"

	"github.com/go-chi/chi/v5/middleware"
)

func (app *application) logClientError(r *http.Request, msg string, err error) {
	app.logger.Warnw(msg,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err.Error(),
	)
}

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err.Error(),
	)

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem", err.Error())
}

func (app *application) gatewayErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("payment gateway error",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err.Error(),
	)

	writeJSONError(w, http.StatusBadGateway, "payment gateway request failed", err.Error())
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "bad request", err)

	writeJSONError(w, http.StatusBadRequest, "invalid request", err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "not found", err)

	writeJSONError(w, http.StatusNotFound, "not found", err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "conflict", err)

	writeJSONError(w, http.StatusConflict, "request conflicts with one in progress", err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "unauthorized", err)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "unauthorized basic", err)

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logClientError(r, "forbidden", err)

	writeJSONError(w, http.StatusForbidden, "forbidden", "")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))

	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.String(), "")
}

// serviceError maps billing, gateway and store errors onto responses.
func (app *application) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *billing.ValidationError
	switch {
	case errors.As(err, &verr):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, billing.ErrBusy):
		app.conflictResponse(w, r, err)
	case errors.Is(err, payments.ErrOrderNotFound):
		app.logClientError(r, "gateway order not found", err)
		writeJSONError(w, http.StatusNotFound, err.Error(), payments.ErrOrderNotFound.Error())
	case errors.Is(err, payments.ErrGateway):
		app.gatewayErrorResponse(w, r, err)
	case errors.Is(err, paymentsrepo.ErrNotFound):
		app.notFoundResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
