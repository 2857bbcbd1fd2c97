// Package checker orchestrates one check's lifecycle: network gate, fetch
// with retry, hash short-circuit, comparison, persistence, and the
// notification decision.
package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/differ"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// retryBackoffStep is multiplied by the attempt index between fetch retries.
const retryBackoffStep = time.Second

// Checker runs checks against its injected collaborators. All dependencies
// are explicit; nothing is reached through globals.
type Checker struct {
	staticFetcher   Fetcher
	renderedFetcher Fetcher
	comparator      Comparator
	history         HistoryStore
	sources         SourceStore
	notifier        Notifier
	policy          NetworkPolicy

	retryCount  int
	networkMode models.NetworkMode
	retention   int

	log zerolog.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// Options carries the collaborator set for NewChecker. RenderedFetcher may be
// nil; rendered-mode sources then fall back to the static fetcher.
type Options struct {
	StaticFetcher   Fetcher
	RenderedFetcher Fetcher
	Comparator      Comparator
	History         HistoryStore
	Sources         SourceStore
	Notifier        Notifier
	Policy          NetworkPolicy
}

func NewChecker(cfg config.CheckerConfig, opts Options, log zerolog.Logger) *Checker {
	retention := cfg.SnapshotRetention
	if retention < 1 {
		retention = models.DefaultSnapshotRetention
	}
	retryCount := cfg.RetryCount
	if retryCount < 1 {
		retryCount = models.DefaultRetryCount
	}
	return &Checker{
		staticFetcher:   opts.StaticFetcher,
		renderedFetcher: opts.RenderedFetcher,
		comparator:      opts.Comparator,
		history:         opts.History,
		sources:         opts.Sources,
		notifier:        opts.Notifier,
		policy:          opts.Policy,
		retryCount:      retryCount,
		networkMode:     models.ParseNetworkMode(cfg.NetworkMode),
		retention:       retention,
		log:             log.With().Str("component", "checker").Logger(),
		inFlight:        make(map[int64]struct{}),
	}
}

// Check runs one full check for the source. It never panics or propagates
// collaborator errors; the returned result always describes the outcome.
// Concurrent checks for the same source are rejected with ErrCheckInFlight
// so a manual and a scheduled trigger cannot race on the same baseline.
func (c *Checker) Check(ctx context.Context, source *models.Source) (*models.CheckResult, error) {
	if !c.markInFlight(source.ID) {
		return nil, errorx.Wrapf(errorx.ErrCheckInFlight, "source %d", source.ID)
	}
	defer c.clearInFlight(source.ID)

	start := time.Now()
	result := c.runPipeline(ctx, source, start)
	result.ResponseTime = time.Since(start)

	if err := c.sources.AppendResult(result); err != nil {
		// Log-only: the check's outcome stands even if the log write fails.
		c.log.Error().Err(err).Int64("source_id", source.ID).Msg("Failed to append check result")
	}

	c.log.Info().Int64("source_id", source.ID).
		Bool("success", result.Success).
		Float64("change_percent", result.ChangePercent).
		Dur("elapsed", result.ResponseTime).
		Msg("Check completed")

	return result, nil
}

func (c *Checker) runPipeline(ctx context.Context, source *models.Source, start time.Time) *models.CheckResult {
	result := &models.CheckResult{
		SourceID:  source.ID,
		CheckTime: start,
	}

	// Network gate. A disallowed check is not a failure: the error is
	// recorded but the failure counter and the baseline stay untouched.
	if err := c.policy.Allowed(c.networkMode); err != nil {
		result.Error = err.Error()
		c.persistState(source, source.LastCheckTime, 0, err.Error(), source.ConsecutiveFailures)
		return result
	}

	content, err := c.fetchWithRetry(ctx, source)
	if err != nil {
		if errors.Is(err, errorx.ErrNetworkUnavailable) {
			result.Error = err.Error()
			c.persistState(source, source.LastCheckTime, 0, err.Error(), source.ConsecutiveFailures)
			return result
		}
		result.Error = err.Error()
		c.persistState(source, start, 0, err.Error(), source.ConsecutiveFailures+1)
		return result
	}

	hash := contentHash(content)

	latest, err := c.history.Latest(source.ID)
	if err != nil {
		c.log.Warn().Err(err).Int64("source_id", source.ID).Msg("Failed to read snapshot history, treating as first check")
		latest = nil
	}

	// First check: the fetch becomes the baseline and there is nothing to
	// compare against.
	if latest == nil {
		c.saveBaseline(source, content, hash)
		result.Success = true
		c.persistState(source, start, 0, "", 0)
		return result
	}

	// Identical hash means identical content: skip the comparator.
	if latest.ContentHash == hash {
		result.Success = true
		c.persistState(source, start, 0, "", 0)
		return result
	}

	oldContent, err := c.history.Load(latest)
	if err != nil {
		c.log.Warn().Err(err).Int64("source_id", source.ID).Msg("Baseline unreadable, re-baselining")
		c.saveBaseline(source, content, hash)
		result.Success = true
		c.persistState(source, start, 0, "", 0)
		return result
	}

	comparison := c.comparator.Compare(oldContent, content, source)
	result.Success = true
	result.ChangePercent = comparison.ChangePercent

	c.persistState(source, start, comparison.ChangePercent, "", 0)

	// Only significant changes become the new baseline, so noisy content
	// cannot drift the comparison reference.
	if comparison.IsSignificant(source.Threshold()) {
		c.saveBaseline(source, content, hash)
		c.notify(ctx, source, comparison, oldContent, content)
	}

	return result
}

// fetchWithRetry attempts the fetch up to the configured count with a linear
// backoff between attempts. Network unavailability aborts immediately; it is
// handled by the gate semantics, not the retry loop.
func (c *Checker) fetchWithRetry(ctx context.Context, source *models.Source) ([]byte, error) {
	fetcher := c.fetcherFor(source)

	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		content, err := fetcher.Fetch(ctx, source)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, errorx.ErrNetworkUnavailable) {
			return nil, err
		}
		lastErr = err

		if attempt < c.retryCount {
			c.log.Debug().Err(err).Int64("source_id", source.ID).
				Int("attempt", attempt).Msg("Fetch failed, retrying")
			if err := sleepCtx(ctx, time.Duration(attempt)*retryBackoffStep); err != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

func (c *Checker) fetcherFor(source *models.Source) Fetcher {
	if source.FetchMode == models.FetchModeRendered && c.renderedFetcher != nil {
		return c.renderedFetcher
	}
	return c.staticFetcher
}

func (c *Checker) saveBaseline(source *models.Source, content []byte, hash string) {
	if _, err := c.history.Save(source.ID, content, hash); err != nil {
		c.log.Error().Err(err).Int64("source_id", source.ID).Msg("Failed to save snapshot")
		return
	}
	if err := c.history.Prune(source.ID, c.retention); err != nil {
		c.log.Warn().Err(err).Int64("source_id", source.ID).Msg("Failed to prune snapshot history")
	}
}

// persistState writes the post-check source fields. Persistence errors are
// logged and never fail the check.
func (c *Checker) persistState(source *models.Source, checkTime time.Time, changePercent float64, errText string, failures int) {
	source.LastCheckTime = checkTime
	source.LastChangePercent = changePercent
	source.LastError = errText
	source.ConsecutiveFailures = failures

	if err := c.sources.UpdateAfterCheck(source.ID, checkTime, changePercent, errText, failures); err != nil {
		c.log.Error().Err(err).Int64("source_id", source.ID).Msg("Failed to persist check state")
	}
}

func (c *Checker) notify(ctx context.Context, source *models.Source, comparison models.ComparisonResult, oldContent, newContent []byte) {
	if c.notifier == nil {
		return
	}
	preview := differ.Preview(string(oldContent), string(newContent))
	if err := c.notifier.NotifyChange(ctx, source, comparison, preview); err != nil {
		c.log.Error().Err(err).Int64("source_id", source.ID).Msg("Change notification failed")
	}
}

func (c *Checker) markInFlight(sourceID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[sourceID]; busy {
		return false
	}
	c.inFlight[sourceID] = struct{}{}
	return true
}

func (c *Checker) clearInFlight(sourceID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, sourceID)
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
