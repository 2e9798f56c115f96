package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/config"
	"github.com/mind-engage/xapi-tracker/internal/db"
	"github.com/mind-engage/xapi-tracker/internal/delivery"
	"github.com/mind-engage/xapi-tracker/internal/httpclient"
	"github.com/mind-engage/xapi-tracker/internal/logging"
	"github.com/mind-engage/xapi-tracker/internal/responses"
	"github.com/mind-engage/xapi-tracker/internal/settings"
	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg      config.Config
	db       *sql.DB
	resolver *settings.Resolver
	engine   *tracker.Engine
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logging.Log
	drv, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	h, err := db.Open(ctx, drv, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a := &app{cfg: cfg, db: h, closers: []func() error{h.Close}}

	var store settings.Store
	switch cfg.SettingsBackend {
	case "", "sql":
		store = settings.NewSQLStore(h)
	case "redis":
		rc, err := settings.ConnectRedis(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		store = settings.NewRedisStore(rc)
	case "memory":
		store = settings.NewMemoryStore()
	default:
		a.close()
		return nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}

	a.resolver = settings.NewResolver(store, cfg.Settings, log)
	hc := httpclient.New(log, cfg.HTTPTimeout)
	a.engine = tracker.NewEngine(a.resolver, responses.NewRepository(h, cfg.TablePrefix), delivery.New(hc, log), log)
	log.WithFields(logrus.Fields{
		"db":       string(drv),
		"settings": cfg.SettingsBackend,
	}).Debug("app ready")
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Log.WithError(err).Warn("close")
		}
	}
}
