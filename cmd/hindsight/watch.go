package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	IgnoreDirs   []string
	DebounceTime int
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		IgnoreDirs:   []string{".git", "node_modules"},
		DebounceTime: 500,
	}
}

// Validate validates the WatchConfig and returns an error if invalid
func (c *WatchConfig) Validate() error {
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	return nil
}

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for changes and keep the report fresh",
	Long: `Continuously monitors the event store and the configured document
directories, re-running the analysis whenever something changes and printing
the refreshed report.

Changes are debounced so a burst of writes triggers a single refresh.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		config := getWatchConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			presenter.Warning("\nCancellation requested, shutting down...")
			cancel()
		}()

		runWatchMode(ctx, config)
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().StringSlice("ignore-dirs", defaults.IgnoreDirs, "Directories to ignore")
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")

	rootCmd.AddCommand(withTracing(watchCmd))
}

// getWatchConfigFromFlags extracts watch configuration from command flags
func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()

	if ignoreDirs, err := cmd.Flags().GetStringSlice("ignore-dirs"); err == nil {
		config.IgnoreDirs = ignoreDirs
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}

	return config
}

func runWatchMode(ctx context.Context, watchConfig *WatchConfig) {
	cfg, err := config.Load()
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	store, err := events.NewStore(ctx, &cfg.Store)
	if err != nil {
		presenter.Error(err, "Failed to open event store")
		os.Exit(1)
	}
	defer store.Close()

	// The first report validates the analysis parameters before any
	// watching starts.
	if err := refreshReport(ctx, cfg, store); err != nil {
		presenter.Error(err, "Invalid analysis parameters")
		os.Exit(1)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		presenter.Error(err, "Failed to create file watcher")
		logger.G(ctx).WithError(err).Fatal("Failed to create file watcher")
	}
	defer watcher.Close()

	fileEvents := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)

	go debounceFileEvents(ctx, fileEvents, debouncedEvents, time.Duration(watchConfig.DebounceTime)*time.Millisecond)

	// Process debounced events
	go func() {
		for {
			select {
			case event, ok := <-debouncedEvents:
				if !ok {
					return
				}
				presenter.Info(fmt.Sprintf("Change detected: %s (%s)", event.Path, event.Op))
				logger.G(ctx).WithFields(map[string]interface{}{
					"file":      event.Path,
					"operation": event.Op.String(),
					"timestamp": event.Time,
				}).Debug("File change detected")
				if err := refreshReport(ctx, cfg, store); err != nil {
					presenter.Error(err, "Analysis failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Watch for events
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if skipWatchEvent(event.Name, watchConfig.IgnoreDirs) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					fileEvents <- FileEvent{
						Path: event.Name,
						Op:   event.Op,
						Time: time.Now(),
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				presenter.Error(err, "File watcher error")
				logger.G(ctx).WithError(err).Error("Error watching files")
			case <-ctx.Done():
				return
			}
		}
	}()

	watched := 0
	for _, root := range watchRoots(cfg) {
		added, err := addWatchTree(ctx, watcher, root, watchConfig.IgnoreDirs)
		if err != nil {
			presenter.Warning(fmt.Sprintf("Not watching %s: %v", root, err))
			logger.G(ctx).WithError(err).WithField("root", root).Warn("failed to watch directory")
			continue
		}
		watched += added
	}
	if watched == 0 {
		presenter.Error(errors.New("no watchable directories"), "Nothing to watch")
		os.Exit(1)
	}

	presenter.Info("Watching for changes... Press Ctrl+C to stop")
	logger.G(ctx).WithField("directories_count", watched).Info("File watcher initialized")

	<-ctx.Done()
}

// watchRoots selects the directories whose contents feed the analysis.
func watchRoots(cfg *config.Config) []string {
	var roots []string
	if cfg.Sources.SourceEnabled("events") {
		roots = append(roots, cfg.Store.ResolveBasePath())
	}
	if cfg.Sources.SourceEnabled("docs") {
		roots = append(roots, cfg.Sources.Docs.Dirs...)
	}
	return roots
}

// addWatchTree registers root and its subdirectories with the watcher,
// skipping ignored directories. Returns how many directories were added.
func addWatchTree(ctx context.Context, watcher *fsnotify.Watcher, root string, ignoreDirs []string) (int, error) {
	added := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		for _, ignoreDir := range ignoreDirs {
			if strings.Contains(path, ignoreDir+string(os.PathSeparator)) || filepath.Base(path) == ignoreDir {
				logger.G(ctx).WithField("directory", path).Debug("Skipping ignored directory")
				return filepath.SkipDir
			}
		}
		logger.G(ctx).WithField("directory", path).Debug("Adding directory to watcher")
		if err := watcher.Add(path); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, err
}

// skipWatchEvent filters out ignored directories and the store's own
// transient artifacts (lock files, temp snapshots, SQLite journals),
// which would otherwise re-trigger a refresh from the refresh itself.
func skipWatchEvent(name string, ignoreDirs []string) bool {
	for _, ignoreDir := range ignoreDirs {
		if strings.Contains(name, ignoreDir+string(os.PathSeparator)) {
			return true
		}
	}

	base := filepath.Base(name)
	if strings.HasSuffix(base, ".lock") || strings.HasSuffix(base, ".tmp") {
		return true
	}
	if strings.HasPrefix(base, "events.db") && base != "events.db" {
		return true
	}
	return false
}

// debounceFileEvents collapses bursts of file events into a single
// trailing event. A refresh recomputes everything, so one timer covers
// every path.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	var pending *time.Timer

	stop := func() {
		if pending != nil {
			pending.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			stop()
			eventCopy := event
			pending = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			stop()
			return
		}
	}
}

// refreshReport reruns the analysis and prints the report.
func refreshReport(ctx context.Context, cfg *config.Config, store events.Store) error {
	result, err := analysis.Run(ctx, cfg, store, analysis.Options{})
	if err != nil {
		return err
	}

	presenter.Section(fmt.Sprintf("Report at %s", time.Now().Format("15:04:05")))
	displayReportTable(os.Stdout, result)
	return nil
}
