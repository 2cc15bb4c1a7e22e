// Package sources turns raw evidence streams into pattern signals the
// analyzer can merge. Each source is independent: one failing source is
// skipped with a warning and the remaining sources still contribute.
package sources

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

// Source produces pattern signals from one evidence stream.
type Source interface {
	// Name identifies the source in merged recommendations and logs.
	Name() string
	// Signals returns the source's signal map keyed by pattern type.
	Signals(ctx context.Context, windowDays, minOccurrences int) (map[string]*patterns.Signal, error)
}

// CollectResult holds the per-source signal groups from one collection
// pass plus which sources contributed and which were skipped.
type CollectResult struct {
	Groups  []patterns.SourceSignals
	Used    []string
	Skipped []string
}

// Collect runs every source and gathers their signals. A failing source
// is logged and skipped rather than failing the collection; the
// accumulated per-source errors are returned alongside the result so
// callers can report them without aborting.
func Collect(ctx context.Context, windowDays, minOccurrences int, srcs ...Source) (*CollectResult, error) {
	result := &CollectResult{}
	var errs *multierror.Error

	for _, src := range srcs {
		signals, err := src.Signals(ctx, windowDays, minOccurrences)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("source", src.Name()).
				Warn("skipping unavailable signal source")
			result.Skipped = append(result.Skipped, src.Name())
			errs = multierror.Append(errs, errors.Wrapf(err, "source %s", src.Name()))
			continue
		}

		result.Groups = append(result.Groups, patterns.SourceSignals{
			Label:   src.Name(),
			Signals: signals,
		})
		result.Used = append(result.Used, src.Name())
	}

	return result, errs.ErrorOrNil()
}
