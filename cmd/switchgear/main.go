package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ohowland/switchgear/internal/pkg/config"
	"github.com/ohowland/switchgear/internal/pkg/database/mongodb"
	"github.com/ohowland/switchgear/internal/pkg/datastreams"
	"github.com/ohowland/switchgear/internal/pkg/datastreams/mqtt"
	"github.com/ohowland/switchgear/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/switchgear/internal/pkg/datastreams/sqldb"
	"github.com/ohowland/switchgear/internal/pkg/logging"
	"github.com/ohowland/switchgear/internal/pkg/msg"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"github.com/ohowland/switchgear/internal/pkg/webservice"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	app := &cli.App{
		Name:   "switchgear",
		Usage:  "single-line diagram simulator for a double-ended switchgear",
		Action: runCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"SWGR_CONFIG"},
				Value:   "",
				Usage:   "path to the JSON config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides LogLevel",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "overrides Addr",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg)
}

func run(ctx context.Context, cfg config.Config) error {
	logger := zap.L().Named("main")

	logger.Info("building system")
	sys, err := buildSystem(cfg.System)
	if err != nil {
		return err
	}
	defer sys.Close()

	logger.Info("building datastreams")
	handlers, err := buildDatastreams(cfg, sys)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return sys.Run(ctx)
	})

	srv := buildServer(cfg.Addr, sys)
	eg.Go(func() error {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	for _, h := range handlers {
		h := h
		eg.Go(func() error {
			// a sink that cannot connect is logged, the simulation keeps running
			if err := h.Process(ctx); err != nil {
				logger.Error("datastream stopped", zap.String("sink", h.Name()), zap.Error(err))
			}
			return nil
		})
	}

	err = eg.Wait()
	logger.Info("stopped")
	return err
}

func buildSystem(cfg config.System) (*root.System, error) {
	return root.NewSystem(cfg.Root())
}

func buildServer(addr string, sys webservice.Controller) *http.Server {
	return &http.Server{
		Handler:     webservice.New(sys).Router(),
		Addr:        addr,
		ReadTimeout: 15 * time.Second,
	}
}

func buildWriters(cfg config.Config) ([]datastreams.Writer, error) {
	writers := []datastreams.Writer{}

	if cfg.NATS.Enabled {
		writers = append(writers, natshandler.New(natshandler.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
		}))
	}

	if cfg.MQTT.Enabled {
		writers = append(writers, mqtt.New(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		}))
	}

	if cfg.SQL.Enabled {
		w, err := sqldb.New(sqldb.Config{
			Driver: cfg.SQL.Driver,
			DSN:    cfg.SQL.DSN,
		})
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	if cfg.Mongo.Enabled {
		writers = append(writers, mongodb.New(mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		}))
	}

	return writers, nil
}

func buildDatastreams(cfg config.Config, pub msg.Publisher) ([]*datastreams.Handler, error) {
	writers, err := buildWriters(cfg)
	if err != nil {
		return nil, err
	}

	handlers := make([]*datastreams.Handler, 0, len(writers))
	for _, w := range writers {
		h, err := datastreams.New(pub, w)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}
