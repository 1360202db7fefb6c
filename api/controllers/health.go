package controllers

import (
	"context"
	"net/http"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/pkg/config"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
)

const envHeader = "X-Mercata-Env"

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, redisClient pinger) http.HandlerFunc {
	deps := map[string]pinger{
		"database": db,
		"redis":    redisClient,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
