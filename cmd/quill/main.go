// Command quill imports story outlines and keeps them in sync with their source.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/quill/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quill/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quill/internal/adapters/driven/watch"
	"github.com/custodia-labs/quill/internal/adapters/driving/cli"
	"github.com/custodia-labs/quill/internal/core/services"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
	"github.com/custodia-labs/quill/internal/parsers/markdown"
	"github.com/custodia-labs/quill/internal/parsers/plottr"
	"github.com/custodia-labs/quill/internal/parsers/scrivener"
	"github.com/custodia-labs/quill/internal/parsers/vault"
	"github.com/custodia-labs/quill/internal/parsers/ywriter"
)

// version is set via -ldflags "-X main.version=...".
var version = "dev"

// errReported marks a command error cobra has already printed.
var errReported = errors.New("command failed")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return err
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if err := logger.SetLogFile(settings.LogFile, settings.LogMaxSizeMB); err != nil {
		return err
	}
	defer logger.Close()

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, err := newRegistry(settings.ResearchTemplates)
	if err != nil {
		return err
	}

	projects := store.ProjectStore()
	sources := store.ImportSourceStore()
	locks := services.NewProjectLocks()

	watcher, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	cli.SetVersion(version)
	cli.Configure(cli.Services{
		Import:   services.NewImportService(registry, projects, projects, sources, locks),
		Project:  services.NewProjectService(projects, projects, sources, locks),
		Settings: settingsService,
		Monitor:  services.NewSourceMonitor(sources, watcher, settings.WatchDebounce),
	})

	if err := cli.Execute(); err != nil {
		return errReported
	}
	return nil
}

// newRegistry registers every parser. Package formats come before the
// vault parser, which accepts any directory.
func newRegistry(researchTemplates []string) (*parsers.Registry, error) {
	templates, err := scrivener.ParseTemplates(strings.Join(researchTemplates, ","))
	if err != nil {
		return nil, fmt.Errorf("scrivener.research_templates: %w", err)
	}

	registry := parsers.NewRegistry()
	registry.Register(scrivener.New(scrivener.WithTemplates(templates)))
	registry.Register(plottr.New())
	registry.Register(ywriter.New())
	registry.Register(markdown.New())
	registry.Register(vault.New())
	return registry, nil
}
