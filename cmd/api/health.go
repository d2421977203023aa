package main

import (
	"context"
	"net/http"
	"time"
)

// healthCheckHandler godoc
//
//	@Summary		Health check
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if app.db != nil {
		if err := app.db.Ping(ctx); err != nil {
			app.logger.Errorw("health check: database unreachable", "error", err.Error())
			data["status"] = "degraded"
			data["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, data)
			return
		}
	}

	app.jsonResponse(w, http.StatusOK, data)
}
