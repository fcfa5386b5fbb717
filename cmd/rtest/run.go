package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"rtest/internal/aggregate"
	"rtest/internal/collect"
	"rtest/internal/config"
	"rtest/internal/discover"
	"rtest/internal/runner"
	"rtest/internal/schedule"
	"rtest/internal/subproject"
	"rtest/internal/workerpool"
)

func runRtest(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		logger.Sugar().Errorf("configuration error: %v", err)
		exitCode = 4
		return nil
	}

	roots := flagRoots
	if len(roots) == 0 {
		roots = []string{"."}
	}

	sessionRoot, err := os.Getwd()
	if err != nil {
		exitCode = 3
		return fmt.Errorf("resolving working directory: %w", err)
	}

	disc, err := discover.New(cfg)
	if err != nil {
		logger.Sugar().Errorf("discoverer setup failed: %v", err)
		exitCode = 4
		return nil
	}
	defer disc.Close()

	if flagWatch {
		return runWatch(disc, sessionRoot, roots)
	}

	result := disc.Discover(sessionRoot, roots)
	return runOnce(cfg, sessionRoot, result)
}

func runOnce(cfg *config.Config, sessionRoot string, result discover.Result) error {
	if rootNotFound(result.Errors) {
		printCollectionErrors(result.Errors)
		exitCode = 4
		return nil
	}

	if flagCollectOnly {
		for _, id := range result.Nodeids {
			fmt.Println(string(id))
		}
		printCollectionErrors(result.Errors)
		if len(result.Nodeids) == 0 {
			exitCode = 5
			return nil
		}
		exitCode = 0
		return nil
	}

	groups, err := subproject.Detect(sessionRoot, result.Nodeids, cfg.WorkingDirectoryMarkers)
	if err != nil {
		logger.Sugar().Errorf("subproject detection failed: %v", err)
		exitCode = 3
		return nil
	}

	workerCount := schedule.ResolveWorkerCount(cfg.WorkerCount, cfg.MaxWorkers)

	var units []workerpool.Unit
	for _, g := range groups {
		batches, err := schedule.Schedule(cfg.DistPolicy, g.Nodeids, workerCount)
		if err != nil {
			logger.Sugar().Errorf("scheduling failed: %v", err)
			exitCode = 4
			return nil
		}
		for _, b := range batches {
			if len(b.Nodeids) == 0 {
				continue
			}
			units = append(units, workerpool.Unit{Group: g, Batch: b})
		}
	}

	strategy, err := resolveStrategy()
	if err != nil {
		logger.Sugar().Errorf("%v", err)
		exitCode = 4
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if flagTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, flagTimeout)
		defer timeoutCancel()
	}

	outcomes := workerpool.Run(ctx, units, strategy, parseEnv(flagEnv), workerCount)
	sessionOutcome := aggregate.Merge(outcomes, result.Errors)

	printCollectionErrors(result.Errors)
	logger.Sugar().Infof(
		"rtest: %d test(s) run across %d worker(s), exit %d",
		sessionOutcome.TotalNodeids(), len(units), sessionOutcome.ExitCode,
	)

	if err := writeReports(sessionOutcome); err != nil {
		logger.Sugar().Errorf("writing report: %v", err)
	}

	exitCode = sessionOutcome.ExitCode
	return nil
}

func runWatch(disc *discover.Discoverer, sessionRoot string, roots []string) error {
	w, err := discover.NewWatcher(disc, sessionRoot, roots)
	if err != nil {
		exitCode = 3
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w.Run(ctx, func(result discover.Result) {
		fmt.Println("--- re-discovery ---")
		for _, id := range result.Nodeids {
			fmt.Println(string(id))
		}
		printCollectionErrors(result.Errors)
	})

	exitCode = 0
	return nil
}

func buildConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		return nil, err
	}

	cfg.Patterns.Files = flagFilePatterns
	cfg.Patterns.Classes = flagClassPatterns
	cfg.Patterns.Functions = flagFunctionPatterns
	cfg.DistPolicy = flagDist
	cfg.MaxWorkers = flagMaxWorkers

	if flagWorkers == "auto" || flagWorkers == "" {
		cfg.WorkerCount = -1
	} else {
		n, err := strconv.Atoi(flagWorkers)
		if err != nil {
			return nil, fmt.Errorf("invalid --workers value %q: %w", flagWorkers, err)
		}
		cfg.WorkerCount = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveStrategy() (runner.Strategy, error) {
	switch flagStrategy {
	case "", "pytest":
		return runner.PytestStrategy{
			Binary:      flagPytestBinary,
			ExtraArgs:   flagPytestArgs,
			GracePeriod: flagGracePeriod,
		}, nil
	case "native":
		return runner.NativeStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", flagStrategy)
	}
}

func parseEnv(overrides []string) []string {
	env := os.Environ()
	for _, kv := range overrides {
		env = append(env, kv)
	}
	return env
}

func rootNotFound(errs []collect.CollectionError) bool {
	for _, e := range errs {
		if e.Kind == collect.ErrorRootNotFound {
			return true
		}
	}
	return false
}

func printCollectionErrors(errs []collect.CollectionError) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", e.File, e.Kind, e.Message)
	}
}

func writeReports(out aggregate.SessionOutcome) error {
	if p := flagReportJUnit; p != "" {
		data, err := aggregate.WriteJUnitXML(out)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	if p := flagReportJSON; p != "" {
		data, err := aggregate.WriteJSON(out)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
