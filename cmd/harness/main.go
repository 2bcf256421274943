package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/vkngwrapper/swapchain-harness/internal/config"
	"github.com/vkngwrapper/swapchain-harness/internal/harness"
	"github.com/vkngwrapper/swapchain-harness/internal/platform"
)

func init() {
	// SDL must be driven from the thread that initialized it.
	runtime.LockOSThread()
}

func parseFlags() (config.Config, error) {
	cfg := config.Default()

	strategy := flag.String("strategy", cfg.Strategy.String(), "frame strategy: single-blocking or pipelined")
	logLevel := flag.String("log-level", cfg.LogLevel.String(), "log level: debug, info, warn or error")
	flag.StringVar(&cfg.Title, "title", cfg.Title, "window title and application name")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "window width in pixels")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "window height in pixels")
	flag.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable the Khronos validation layer")
	flag.IntVar(&cfg.MaxFrames, "frames", cfg.MaxFrames, "stop after this many frames, 0 runs until the window closes")
	flag.Parse()

	var err error
	cfg.Strategy, err = config.ParseFrameStrategy(*strategy)
	if err != nil {
		return cfg, err
	}

	cfg.LogLevel, err = config.ParseLogLevel(*logLevel)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	harness.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	window, err := platform.Open(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer window.Close()

	loader, err := window.Loader()
	if err != nil {
		return err
	}

	_, err = harness.Run(ctx, loader, window, window, cfg)
	return err
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
