// Package analysis runs the full pattern analysis pipeline: collect
// signals from every enabled source, merge them into recommendations,
// and filter against the actionability threshold and the automations
// that already exist. The pipeline holds no state between runs; every
// report is recomputed from the stores and documents as they are now.
package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/patterns"
	"github.com/jingkaihe/hindsight/pkg/skills"
	"github.com/jingkaihe/hindsight/pkg/sources"
	"github.com/jingkaihe/hindsight/pkg/telemetry"
)

// Options override the configured analysis parameters for one run.
// Zero values fall back to configuration.
type Options struct {
	WindowDays     int
	MinOccurrences int
	AutoThreshold  string
}

// Result is one complete analysis run.
type Result struct {
	GeneratedAt    time.Time                  `json:"generated_at" yaml:"generated_at"`
	WindowDays     int                        `json:"window_days" yaml:"window_days"`
	MinOccurrences int                        `json:"min_occurrences" yaml:"min_occurrences"`
	AutoThreshold  patterns.Tier              `json:"auto_threshold" yaml:"auto_threshold"`
	EventsScanned  int                        `json:"events_scanned" yaml:"events_scanned"`
	SourcesUsed    []string                   `json:"sources_used" yaml:"sources_used"`
	SourcesSkipped []string                   `json:"sources_skipped,omitempty" yaml:"sources_skipped,omitempty"`
	Actionable     []*patterns.Recommendation `json:"actionable" yaml:"actionable"`
	Skipped        []*patterns.Recommendation `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Monitored      []*patterns.Signal         `json:"monitored,omitempty" yaml:"monitored,omitempty"`
}

// Run executes the pipeline against store using cfg and opts. Source
// failures degrade the result (the source is listed as skipped) rather
// than failing the run; only invalid parameters are returned as errors.
func Run(ctx context.Context, cfg *config.Config, store events.Store, opts Options) (*Result, error) {
	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = cfg.Analysis.WindowDays
	}
	minOccurrences := opts.MinOccurrences
	if minOccurrences <= 0 {
		minOccurrences = cfg.Analysis.MinOccurrences
	}
	thresholdSpec := opts.AutoThreshold
	if thresholdSpec == "" {
		thresholdSpec = cfg.Analysis.AutoThreshold
	}

	threshold, err := patterns.ParseTier(thresholdSpec)
	if err != nil {
		return nil, err
	}

	ignoreGlobs, err := cfg.Analysis.IgnoreGlobs()
	if err != nil {
		return nil, err
	}

	result := &Result{
		GeneratedAt:    time.Now(),
		WindowDays:     windowDays,
		MinOccurrences: minOccurrences,
		AutoThreshold:  threshold,
	}

	var eventSource *sources.EventSource
	var srcs []sources.Source
	if cfg.Sources.SourceEnabled("events") {
		eventSource = sources.NewEventSource(store, ignoreGlobs)
		srcs = append(srcs, eventSource)
	}
	if cfg.Sources.SourceEnabled("docs") {
		srcs = append(srcs, sources.NewDocsSource(&cfg.Sources.Docs))
	}

	var collected *sources.CollectResult
	err = telemetry.WithSpan(ctx, "analysis.collect", func(ctx context.Context) error {
		var collectErr error
		collected, collectErr = sources.Collect(ctx, windowDays, minOccurrences, srcs...)
		if collectErr != nil {
			// Individual failures are already logged by Collect; the
			// run continues with whatever sources succeeded.
			logger.G(ctx).WithError(collectErr).Debug("analysis continuing with partial sources")
		}
		return nil
	}, attribute.Int("window_days", windowDays))
	if err != nil {
		return nil, err
	}

	result.SourcesUsed = collected.Used
	result.SourcesSkipped = collected.Skipped
	if eventSource != nil {
		result.EventsScanned = eventSource.EventsScanned()
		result.Monitored = eventSource.Monitored()
	}

	merged := patterns.MergeSignals(collected.Groups)
	existing := existingTargets(ctx, &cfg.Skills)
	result.Actionable, result.Skipped = patterns.FilterActionable(merged, threshold, existing)

	return result, nil
}

// existingTargets enumerates already-built automations. Discovery
// trouble means recommendations go out unfiltered rather than the run
// failing.
func existingTargets(ctx context.Context, cfg *config.SkillsConfig) map[string]struct{} {
	discovery, err := skills.NewDiscoveryFromConfig(cfg)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to set up skill discovery, treating all targets as new")
		return nil
	}
	return discovery.ExistingTargets(ctx)
}
