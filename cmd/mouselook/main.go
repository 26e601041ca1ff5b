package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Versifine/mouselook/internal/config"
	"github.com/Versifine/mouselook/internal/debug"
	"github.com/Versifine/mouselook/internal/event"
	"github.com/Versifine/mouselook/internal/logger"
	"github.com/Versifine/mouselook/internal/loop"
	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/platform/evdev"
	"github.com/Versifine/mouselook/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if cfg.Input.Platform == "console" && cfg.Logging.Format == "console" {
		// The debug console puts the terminal in raw mode.
		slog.SetDefault(slog.New(logger.NewConsoleHandler(os.Stderr, cfg.Logging.Level)))
	}

	code := 0
	runMain(func() {
		if err := run(cfg, *configPath); err != nil {
			slog.Error("mouselook stopped", "error", err)
			code = 1
		}
	})
	os.Exit(code)
}

func run(cfg *config.Config, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode, err := config.ParseMode(cfg.Input.Mode)
	if err != nil {
		return err
	}

	dev, console, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	bus := event.NewBus()
	sensitivity := config.NewSensitivityProvider(cfg.Sensitivity.Pointer())
	lp, err := loop.New(loop.Config{
		Mode:         mode,
		TickRate:     cfg.Loop.TickRate,
		Quantization: cfg.Quantization.Pointer(),
	}, dev, sensitivity, bus)
	if err != nil {
		return fmt.Errorf("create tick loop: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dev.Run(ctx) })
	g.Go(func() error { return lp.Run(ctx) })
	g.Go(func() error { return sensitivity.Watch(ctx, configPath) })

	if cfg.Telemetry.Listen != "" {
		hub := telemetry.NewHub(bus)
		g.Go(func() error { return hub.ListenAndServe(ctx, cfg.Telemetry.Listen) })
	}

	if cfg.Input.Platform == "console" {
		c := debug.NewConsole(console, lp, sensitivity, bus)
		g.Go(func() error { return c.Start(ctx) })
	} else {
		lp.Activate()
	}

	slog.Info("mouselook running", "platform", cfg.Input.Platform, "mode", mode.String(), "tick_rate", cfg.Loop.TickRate)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openDevice returns the configured backend. For the console platform the
// channel device is also returned so the debug console can feed it.
func openDevice(cfg *config.Config) (platform.Device, *platform.ChanDevice, error) {
	switch cfg.Input.Platform {
	case "console":
		dev := platform.NewChanDevice(cfg.Loop.QueueDepth)
		return dev, dev, nil
	case "evdev":
		dev, err := evdev.Open(cfg.Input.Device, cfg.Input.Grab, cfg.Loop.QueueDepth)
		if err != nil {
			return nil, nil, err
		}
		return dev, nil, nil
	case "sdl":
		dev, err := openSDL(cfg)
		return dev, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: unknown platform %q", config.ErrInvalidConfig, cfg.Input.Platform)
	}
}
