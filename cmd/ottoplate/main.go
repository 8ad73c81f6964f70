// ottoplate: pick a dish concept and watch it get styled into a
// food photograph by the Gemini image model.
//
// Usage:
//
//	ottoplate [-verbose] [-quiet] [-model name] [-out dir] [-no-chime]
//
// The API key is read from GEMINI_API_KEY (or API_KEY), optionally via a
// .env file in the working directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/ottoplate/internal/coordinator"
	"github.com/hammamikhairi/ottoplate/internal/dish"
	"github.com/hammamikhairi/ottoplate/internal/display"
	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/imagegen"
	"github.com/hammamikhairi/ottoplate/internal/logger"
	"github.com/hammamikhairi/ottoplate/internal/sound"
	"github.com/hammamikhairi/ottoplate/internal/storage"
	"github.com/hammamikhairi/ottoplate/internal/timeline"
)

func main() {
	_ = godotenv.Load()

	levelFlag := flag.String("log-level", "normal", "log verbosity: off, normal or verbose")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging (same as -log-level verbose)")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".otto-logs/ottoplate.log", "file to write logs to (use \"stderr\" to log to console)")
	model := flag.String("model", imagegen.DefaultModel, "Gemini image model")
	outDir := flag.String("out", ".otto-plates", "directory generated images are saved to")
	timeout := flag.Duration("timeout", 90*time.Second, "per-request timeout for the image service")
	noChime := flag.Bool("no-chime", false, "do not play a sound when the dish is revealed")
	dishFlag := flag.String("dish", "", "dish selected at startup (tart, ring, 1 or 2)")
	flag.Parse()

	// Configure logger.
	logLevel, err := logger.ParseLevel(*levelFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Logs go to a file by default so they don't tear the TUI.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Third-party libraries that use the standard logger end up in the
	// same place.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire dependencies.
	catalog := dish.NewCatalog(log.Named("dish"))
	initial := catalog.Default()
	if *dishFlag != "" {
		initial, err = domain.ParseDishKind(*dishFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: unknown dish %q\n", *dishFlag)
			os.Exit(2)
		}
	}
	dishes, err := catalog.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading dishes: %v\n", err)
		os.Exit(1)
	}

	apiKey := imagegen.KeyFromEnv()
	if apiKey == "" {
		log.Warn("no API key: set %s (or %s) to enable image generation", imagegen.EnvAPIKey, imagegen.EnvAPIKeyFallback)
	}
	gen := imagegen.NewClient(apiKey, log.Named("imagegen"),
		imagegen.WithModel(*model),
		imagegen.WithTimeout(*timeout),
	)

	var chime domain.Chime = sound.Noop{}
	if !*noChime {
		player, err := sound.NewPlayer(log.Named("sound"))
		if err != nil {
			log.Warn("audio unavailable, chime disabled: %v", err)
		} else {
			chime = player
		}
	}

	store := storage.NewPreviewStore(*outDir, log.Named("storage"))

	// The UI is built last but the timeline and coordinator report to it;
	// neither calls back before the first key press.
	var ui *display.UI

	anim := timeline.New(log.Named("timeline"),
		timeline.WithStageHook(func(kind domain.DishKind, stage int) {
			ui.StageReached(kind, stage)
		}),
	)

	coord := coordinator.New(catalog, gen, anim, log.Named("coordinator"),
		coordinator.WithInitialDish(initial),
		coordinator.WithGenerationTimeout(*timeout+10*time.Second),
		coordinator.WithListener(func() { ui.Refresh() }),
	)
	defer coord.Close()

	ui = display.NewUI(ctx, coord, dishes, store, chime, log.Named("display"))

	fmt.Println(display.RenderBanner("Culinary AI Stylist"))
	log.Info("ottoplate started (model=%s, out=%s)", gen.Model(), *outDir)

	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
