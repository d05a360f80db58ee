package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/gloworm-vision/lcdpanel/console"
	"github.com/gloworm-vision/lcdpanel/internal/config"
	"github.com/gloworm-vision/lcdpanel/internal/logging"
	"github.com/gloworm-vision/lcdpanel/server"
	"github.com/gloworm-vision/lcdpanel/store"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "lcdserver: %s\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lcdserver: %s\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("lcdserver stopped")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) (err error) {
	db, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Addr:     cfg.Server.Addr,
		Store:    db,
		Logger:   logger,
		Hardware: cfg.Hardware,
	}
	if err := srv.Init(); err != nil {
		return multierr.Append(err, db.Close())
	}
	defer func() {
		err = multierr.Combine(err, srv.Close(), db.Close())
	}()

	if cfg.Serial.Device != "" {
		port, err := console.Open(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			logger.Warnf("serial console disabled: %s", err)
		} else {
			c := &console.Console{Channel: srv.Channel(), Logger: logger}
			go func() {
				logger.WithField("device", cfg.Serial.Device).Info("serving serial console")
				if err := c.Serve(ctx, port); err != nil {
					logger.Errorf("serial console stopped: %s", err)
				}
			}()
		}
	}

	return srv.Run(ctx)
}

func openStore(cfg config.StoreConfig, logger *logrus.Logger) (store.Store, error) {
	switch cfg.Engine {
	case "badger":
		return store.OpenBadger(cfg.Path, logger)
	default:
		return store.OpenBBolt(cfg.Path, 0666, nil)
	}
}
