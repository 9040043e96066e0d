package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ohowland/switchgear/internal/pkg/config"
	"github.com/ohowland/switchgear/internal/pkg/hmi"
	"github.com/ohowland/switchgear/internal/pkg/logging"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:   "switchgear-hmi",
		Usage:  "terminal view of an in-process switchgear simulation",
		Action: runCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"SWGR_CONFIG"},
				Usage:   "path to the JSON config file",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs here, the terminal belongs to the HMI",
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

	logger := zap.NewNop()
	if path := c.String("log-file"); path != "" {
		if logger, err = logging.New(cfg.LogLevel, path); err != nil {
			return err
		}
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := root.NewSystem(cfg.System.Root())
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return sys.Run(ctx)
	})
	eg.Go(func() error {
		// quitting the HMI stops the simulation
		defer cancel()
		return hmi.New(sys).Run(ctx)
	})

	return eg.Wait()
}
