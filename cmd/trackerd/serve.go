package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	api "github.com/mind-engage/xapi-tracker/internal/api/http"
	"github.com/mind-engage/xapi-tracker/internal/auth/middleware"
	"github.com/mind-engage/xapi-tracker/internal/events"
	"github.com/mind-engage/xapi-tracker/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the event trigger and admin settings channel over HTTP",
	Long: `Serve POST /events and the admin settings channel. When kafka.brokers is set,
events are also consumed from the configured topic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := loadConfig()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()
		log := logging.Log

		admin := middleware.AdminToken{Token: cfg.AdminToken, Hash: cfg.AdminTokenHash}
		if !admin.Configured() {
			log.Warn("no admin token configured; the admin settings channel refuses every request")
		}
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: api.NewRouter(api.Server{
				Engine:   a.engine,
				Settings: a.resolver,
				Admin:    admin,
				Log:      log,
			}, cfg.CORSOrigins()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if len(cfg.KafkaBrokers) > 0 {
			reader, err := events.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic)
			if err != nil {
				return err
			}
			c := &events.Consumer{Reader: reader, Handler: a.engine, Log: log}
			defer c.Close()
			go func() {
				if err := c.Run(ctx); err != nil {
					log.WithError(err).Error("kafka consumer stopped")
				}
			}()
			log.WithField("topic", cfg.KafkaTopic).Info("consuming events from kafka")
		}

		errc := make(chan error, 1)
		go func() {
			log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "mode": string(cfg.Mode)}).Info("listening")
			errc <- srv.ListenAndServe()
		}()
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides http_addr)")
}
