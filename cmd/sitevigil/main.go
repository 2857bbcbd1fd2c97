package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sitevigil/sitevigil/internal/app"
	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/logger"
	"github.com/sitevigil/sitevigil/internal/models"
)

func main() {
	flags := parseFlags()

	cfg, err := config.LoadGlobalConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("[FATAL] Could not load config from '%s': %v", flags.ConfigFile, err)
	}

	zLogger, err := logger.New(cfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Could not initialize logger: %v", err)
	}

	registry, err := app.Build(cfg, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to build application")
	}

	if done, err := runOnce(registry, flags); done {
		registry.Shutdown()
		if err != nil {
			zLogger.Fatal().Err(err).Msg("Command failed")
		}
		return
	}

	registry.Start()
	zLogger.Info().Msg("sitevigil running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zLogger.Info().Str("signal", sig.String()).Msg("Shutting down")

	registry.Shutdown()
}

// runOnce handles the one-shot subcommand flags. It reports whether the
// process should exit after it.
func runOnce(registry *app.Registry, flags *cliFlags) (bool, error) {
	switch {
	case flags.AddURL != "":
		source := models.NewSource(flags.AddURL, "")
		if err := registry.Sources.Create(source); err != nil {
			return true, err
		}
		fmt.Printf("Added source %d: %s\n", source.ID, source.URL)
		return true, nil

	case flags.ListOnly:
		sources, err := registry.Sources.List()
		if err != nil {
			return true, err
		}
		for _, s := range sources {
			state := "enabled"
			if !s.Enabled {
				state = "disabled"
			}
			fmt.Printf("%4d  %-8s  %5.1f%%  %s\n", s.ID, state, s.LastChangePercent, s.URL)
		}
		return true, nil

	case flags.ImportFile != "":
		data, err := os.ReadFile(flags.ImportFile)
		if err != nil {
			return true, err
		}
		sources, err := models.ImportSources(data)
		if err != nil {
			return true, err
		}
		for _, s := range sources {
			if err := registry.Sources.Create(s); err != nil {
				return true, err
			}
		}
		fmt.Printf("Imported %d sources\n", len(sources))
		return true, nil

	case flags.ExportFile != "":
		sources, err := registry.Sources.List()
		if err != nil {
			return true, err
		}
		data, err := models.ExportSources(sources)
		if err != nil {
			return true, err
		}
		if err := os.WriteFile(flags.ExportFile, data, 0644); err != nil {
			return true, err
		}
		fmt.Printf("Exported %d sources to %s\n", len(sources), flags.ExportFile)
		return true, nil

	case flags.TriggerID != 0:
		source, err := registry.Sources.Get(flags.TriggerID)
		if err != nil {
			return true, err
		}
		result, err := registry.Checker.Check(context.Background(), source)
		if err != nil {
			return true, err
		}
		fmt.Printf("Check finished: success=%t change=%.1f%% error=%q\n",
			result.Success, result.ChangePercent, result.Error)
		return true, nil
	}

	return false, nil
}
