// Command localhost runs the single-process HTTP/1.1 origin server defined
// by a YAML configuration file: static files, CGI/1.1, uploads, and
// cookie-backed sessions over a single readiness-driven event loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mohalnassery/localhost/internal/config"
	"github.com/mohalnassery/localhost/internal/loop"
)

const serverSoftware = "localhost/1.0"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:      "localhost",
		Usage:     "single-process HTTP/1.1 origin server",
		ArgsUsage: "CONFIG",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "test-config", Aliases: []string{"t"}, Usage: "validate the configuration file and exit"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				log.SetLevel(logrus.DebugLevel)
			}
			path := c.Args().First()
			if path == "" {
				return cli.Exit("missing CONFIG argument", 1)
			}

			cfg, err := config.Load(path)
			if err != nil {
				log.WithError(err).Error("configuration load failed")
				return cli.Exit(errors.Wrap(err, "load config"), 1)
			}

			if c.Bool("test-config") {
				log.Info("configuration is valid")
				return nil
			}

			return run(c.Context, cfg, log)
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			os.Exit(exitErr.ExitCode())
		}
		log.WithError(err).Error("fatal error")
		os.Exit(2)
	}
}

// run starts the event loop and blocks until a termination signal arrives,
// then drains connections within the configured shutdown grace period.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	engine := loop.NewEngine(cfg, log, serverSoftware)

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(cfg, engine)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "event loop")
		}
		return nil
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := loop.Stop(shutdownCtx, engine); err != nil {
			return errors.Wrap(err, "graceful shutdown")
		}
		select {
		case <-errCh:
		case <-time.After(cfg.ShutdownGrace):
		}
		return nil
	}
}
