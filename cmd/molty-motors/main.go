// molty-motors - Molty's motor controller process
//
// Reads line-delimited JSON commands on stdin and writes status events on
// stdout. Logs go to stderr. The kiosk app spawns one per robot.
//
// Usage:
//
//	molty-motors [--config path] [--simulate] [--http :8091] [--log-level debug]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-molty/internal/config"
	"github.com/teslashibe/go-molty/internal/log"
	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/dispatch"
	"github.com/teslashibe/go-molty/pkg/emotions"
	"github.com/teslashibe/go-molty/pkg/hub"
	"github.com/teslashibe/go-molty/pkg/scheduler"
	"github.com/teslashibe/go-molty/pkg/web"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "molty-motors: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.Log.Level)

	if err := run(cfg); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

// parseFlags layers flags over the config file and environment.
func parseFlags() (config.Config, error) {
	configPath := flag.String("config", "", "Config file (default $MOLTY_CONFIG or ~/.config/molty/config.toml)")
	simulate := flag.Bool("simulate", false, "Force simulation mode (no GPIO)")
	httpAddr := flag.String("http", "", "Serve the HTTP control surface on this address, e.g. :8091")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	maxSpeed := flag.Float64("max-speed", 0, "Motor safety cap in (0, 1]")
	programs := flag.String("programs", "", "YAML file overriding built-in motion programs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	cfg.LoadEnv()

	if *simulate {
		cfg.Simulate = true
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *maxSpeed != 0 {
		cfg.Motors.MaxSpeed = *maxSpeed
	}
	if *programs != "" {
		cfg.Programs = *programs
	}
	return cfg, cfg.Validate()
}

// app is the wired process: one controller, the stdin dispatcher and the
// optional status hub, all reporting through the same emitters.
type app struct {
	ctl        *scheduler.Controller
	dispatcher *dispatch.Dispatcher
	hub        *hub.Hub // nil without --http
	emitters   dispatch.Fanout
}

// newApp builds the controller graph. Status events go to stdout and, when
// the HTTP surface is enabled, to the websocket hub.
func newApp(cfg config.Config, driver actuator.Driver, stdout io.Writer, logger *slog.Logger) (*app, error) {
	library, err := emotions.Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.Programs != "" {
		if err := library.LoadOverrides(cfg.Programs); err != nil {
			return nil, fmt.Errorf("program overrides: %w", err)
		}
		logger.Info("loaded program overrides", "path", cfg.Programs)
	}

	a := &app{emitters: dispatch.Fanout{dispatch.NewWriter(stdout, logger)}}
	if cfg.HTTP.Addr != "" {
		a.hub = hub.New("status", logger)
		a.emitters = append(a.emitters, a.hub)
	}

	a.ctl, err = scheduler.New(driver, a.emitters,
		scheduler.WithLibrary(library),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	a.dispatcher = dispatch.New(a.ctl, a.emitters, logger)
	return a, nil
}

func run(cfg config.Config) error {
	logger := log.L()

	ac := cfg.Actuator()
	ac.Logger = logger
	driver := actuator.Open(ac)

	a, err := newApp(cfg, driver, os.Stdout, logger)
	if err != nil {
		_ = driver.Close()
		return err
	}
	a.ctl.Announce()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// The command loop ends on EOF, a shutdown command or a signal; any of
	// them tears the rest down.
	g.Go(func() error {
		defer cancel()
		err := a.dispatcher.Run(gctx, os.Stdin)
		if errors.Is(err, context.Canceled) {
			logger.Info("command loop cancelled, shutting down")
			return nil
		}
		return err
	})

	if a.hub != nil {
		srv := web.NewServer(cfg.HTTP.Addr, a.ctl, a.hub, logger)
		g.Go(func() error {
			a.hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	runErr := g.Wait()

	// Idempotent: a shutdown command already ran it.
	if err := a.ctl.Shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
