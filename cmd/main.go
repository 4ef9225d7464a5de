package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/yourusername/sweeps-automation/internal/browserutil"
	"github.com/yourusername/sweeps-automation/internal/challenge"
	"github.com/yourusername/sweeps-automation/internal/config"
	"github.com/yourusername/sweeps-automation/internal/form"
	"github.com/yourusername/sweeps-automation/internal/history"
	"github.com/yourusername/sweeps-automation/internal/ledger"
	"github.com/yourusername/sweeps-automation/internal/logger"
	"github.com/yourusername/sweeps-automation/internal/pipeline"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	// Load configuration
	logger.Info("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Init(cfg.Logging.Level, cfg.Logging.ToFile, cfg.Logging.FilePath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Sweepstakes entry automation started", "version", AppVersion, "dry_run", cfg.DryRun)

	// Initialize attempt history
	logger.Info("Initializing history database...", "path", cfg.History.Path)
	if err := history.InitDB(cfg.History.Path); err != nil {
		logger.Fatal("Failed to initialize history database", "error", err)
	}
	defer history.Close()

	if stats, err := history.GetStats(); err == nil {
		logger.Info("Attempt history",
			"total_attempts", stats["total_attempts"],
			"successful_entries", stats["successful_entries"],
			"attempts_today", stats["attempts_today"],
		)
	}
	if err := history.CleanupOldAttempts(); err != nil {
		logger.Warn("Failed to prune old history", "error", err)
	}

	// Open the submission ledger
	led, err := ledger.New(cfg.Ledger.Path, cfg.Ledger.Timezone, cfg.Ledger.Retention)
	if err != nil {
		logger.Fatal("Failed to open submission ledger", "error", err)
	}

	sites := cfg.EnabledSites()
	if len(sites) == 0 {
		logger.Warn("No sites enabled, nothing to do")
		return
	}

	// Launch browser with stealth
	logger.Info("Launching browser...", "headless", cfg.Browser.Headless)
	browser, cleanup, err := browserutil.Launch(browserutil.Options{
		Headless:   cfg.Browser.Headless,
		SlowMotion: cfg.SlowMotion(),
	})
	if err != nil {
		logger.Fatal("Failed to launch browser", "error", err)
	}
	defer cleanup()

	// Cancel in-flight runs on shutdown signal; deferred cleanup still runs
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.New(browser, led, entrantFromConfig(cfg), challenge.NewHandler(cfg.ChallengeWait(), cfg.Challenge.SolverAPIKey), cfg.Browser.ScreenshotDir)

	entered := runSites(ctx, runner, cfg, sites)

	if err := ctx.Err(); err != nil {
		logger.Warn("Shutdown requested, runs aborted", "error", err)
	}
	logger.Info("All runs finished", "sites", len(sites), "entered", entered)
}

// runSites executes one entry run per enabled site, concurrently when
// configured. Each run owns its own page; the ledger is the only shared
// state and serializes itself.
func runSites(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, sites []config.SiteConfig) int {
	if !cfg.Parallel {
		entered := 0
		for _, site := range sites {
			if ctx.Err() != nil {
				break
			}
			if runner.RunEntry(ctx, profileFromConfig(site), cfg.DryRun) {
				entered++
			}
		}
		return entered
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		entered int
	)
	for _, site := range sites {
		wg.Add(1)
		go func(site config.SiteConfig) {
			defer wg.Done()
			if runner.RunEntry(ctx, profileFromConfig(site), cfg.DryRun) {
				mu.Lock()
				entered++
				mu.Unlock()
			}
		}(site)
	}
	wg.Wait()
	return entered
}

func profileFromConfig(site config.SiteConfig) form.Profile {
	return form.NewProfile(site.Name, site.EntryURL, site.Selectors)
}

func entrantFromConfig(cfg *config.Config) form.Entrant {
	p := cfg.Personal
	return form.Entrant{
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Address1:   p.Address1,
		Address2:   p.Address2,
		City:       p.City,
		State:      p.State,
		Zip:        p.Zip,
		Phone:      p.Phone,
		BirthMonth: p.BirthMonth,
		BirthDay:   p.BirthDay,
		BirthYear:  p.BirthYear,
		Gender:     p.Gender,
	}
}
