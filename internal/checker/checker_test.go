package checker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

type stubFetcher struct {
	responses []fetchResponse
	calls     int
}

type fetchResponse struct {
	content []byte
	err     error
}

func (f *stubFetcher) Fetch(context.Context, *models.Source) ([]byte, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp.content, resp.err
}

type stubComparator struct {
	result models.ComparisonResult
	calls  int
}

func (c *stubComparator) Compare(_, _ []byte, _ *models.Source) models.ComparisonResult {
	c.calls++
	return c.result
}

type stubHistory struct {
	latest  *models.Snapshot
	content []byte
	saved   [][]byte
	pruned  int
}

func (h *stubHistory) Latest(int64) (*models.Snapshot, error) { return h.latest, nil }
func (h *stubHistory) Load(*models.Snapshot) ([]byte, error)  { return h.content, nil }
func (h *stubHistory) Save(sourceID int64, content []byte, hash string) (*models.Snapshot, error) {
	h.saved = append(h.saved, content)
	return &models.Snapshot{SourceID: sourceID, ContentHash: hash, Timestamp: time.Now()}, nil
}
func (h *stubHistory) Prune(int64, int) error { h.pruned++; return nil }

type stubSourceStore struct {
	lastCheckTime time.Time
	changePercent float64
	errText       string
	failures      int
	updates       int
	results       []*models.CheckResult
}

func (s *stubSourceStore) UpdateAfterCheck(_ int64, checkTime time.Time, changePercent float64, errText string, failures int) error {
	s.lastCheckTime = checkTime
	s.changePercent = changePercent
	s.errText = errText
	s.failures = failures
	s.updates++
	return nil
}

func (s *stubSourceStore) AppendResult(result *models.CheckResult) error {
	s.results = append(s.results, result)
	return nil
}

type stubNotifier struct {
	notified int
	percent  float64
}

func (n *stubNotifier) NotifyChange(_ context.Context, _ *models.Source, result models.ComparisonResult, _ string) error {
	n.notified++
	n.percent = result.ChangePercent
	return nil
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(models.NetworkMode) error { return nil }

type denyPolicy struct{}

func (denyPolicy) Allowed(models.NetworkMode) error {
	return errorx.Wrap(errorx.ErrNetworkUnavailable, "policy requires an unmetered link")
}

type fixture struct {
	checker    *Checker
	fetcher    *stubFetcher
	comparator *stubComparator
	history    *stubHistory
	sources    *stubSourceStore
	notifier   *stubNotifier
}

func newFixture(t *testing.T, policy NetworkPolicy, fetch *stubFetcher) *fixture {
	t.Helper()
	f := &fixture{
		fetcher:    fetch,
		comparator: &stubComparator{},
		history:    &stubHistory{},
		sources:    &stubSourceStore{},
		notifier:   &stubNotifier{},
	}
	f.checker = NewChecker(config.CheckerConfig{RetryCount: 3, NetworkMode: "wifi_and_data", SnapshotRetention: 10},
		Options{
			StaticFetcher: f.fetcher,
			Comparator:    f.comparator,
			History:       f.history,
			Sources:       f.sources,
			Notifier:      f.notifier,
			Policy:        policy,
		}, zerolog.Nop())
	return f
}

func newTestSource() *models.Source {
	source := models.NewSource("https://example.com", "example")
	source.ID = 7
	source.ThresholdPercent = 25
	return source
}

func TestFirstCheckSavesBaseline(t *testing.T) {
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{
		{content: []byte("initial content")},
	}})

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.ChangePercent)
	assert.Len(t, f.history.saved, 1)
	assert.Zero(t, f.comparator.calls, "comparator must not run on first check")
	assert.Zero(t, f.notifier.notified)
	assert.Len(t, f.sources.results, 1)
}

func TestHashShortCircuitSkipsComparator(t *testing.T) {
	content := []byte("unchanged content")
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{{content: content}}})
	f.history.latest = &models.Snapshot{SourceID: 7, ContentHash: contentHash(content)}
	f.history.content = content

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.ChangePercent)
	assert.Zero(t, f.comparator.calls)
	assert.Empty(t, f.history.saved, "identical content must not re-baseline")
}

func TestSignificantChangeNotifiesAndRebaselines(t *testing.T) {
	oldContent := []byte("old content")
	newContent := []byte("new content")
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{{content: newContent}}})
	f.history.latest = &models.Snapshot{SourceID: 7, ContentHash: contentHash(oldContent)}
	f.history.content = oldContent
	f.comparator.result = models.Changed(40, len(oldContent), len(newContent), "changed")

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 40.0, result.ChangePercent)
	assert.Equal(t, 1, f.comparator.calls)
	assert.Len(t, f.history.saved, 1)
	assert.Equal(t, 1, f.notifier.notified)
	assert.Equal(t, 40.0, f.notifier.percent)
	assert.Zero(t, f.sources.failures)
}

func TestInsignificantChangeKeepsBaseline(t *testing.T) {
	oldContent := []byte("old content")
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{{content: []byte("slightly different")}}})
	f.history.latest = &models.Snapshot{SourceID: 7, ContentHash: contentHash(oldContent)}
	f.history.content = oldContent
	f.comparator.result = models.Changed(5, 11, 18, "small change")

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 5.0, result.ChangePercent)
	assert.Empty(t, f.history.saved, "insignificant changes must not become the baseline")
	assert.Zero(t, f.notifier.notified)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{
		{err: errorx.NewFetchError("https://example.com", "request failed", nil)},
		{err: errorx.NewFetchError("https://example.com", "request failed", nil)},
		{content: []byte("third time lucky")},
	}})

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, 3, f.fetcher.calls)
	assert.Zero(t, f.sources.failures)
}

func TestFetchExhaustionCountsAsFailure(t *testing.T) {
	fetchErr := errorx.NewFetchError("https://example.com", "request failed", nil)
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{
		{err: fetchErr}, {err: fetchErr}, {err: fetchErr},
	}})

	source := newTestSource()
	source.ConsecutiveFailures = 2

	result, err := f.checker.Check(context.Background(), source)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, 3, f.sources.failures, "failure counter increments")
	assert.Empty(t, f.history.saved)
}

func TestZeroRetryCountStillFetches(t *testing.T) {
	fetch := &stubFetcher{responses: []fetchResponse{{content: []byte("fetched once")}}}
	f := &fixture{
		fetcher:    fetch,
		comparator: &stubComparator{},
		history:    &stubHistory{},
		sources:    &stubSourceStore{},
		notifier:   &stubNotifier{},
	}
	f.checker = NewChecker(config.CheckerConfig{RetryCount: 0, NetworkMode: "wifi_and_data"},
		Options{
			StaticFetcher: f.fetcher,
			Comparator:    f.comparator,
			History:       f.history,
			Sources:       f.sources,
			Notifier:      f.notifier,
			Policy:        allowAllPolicy{},
		}, zerolog.Nop())

	result, err := f.checker.Check(context.Background(), newTestSource())

	require.NoError(t, err)
	assert.Equal(t, models.DefaultRetryCount, f.checker.retryCount)
	assert.Equal(t, 1, f.fetcher.calls, "a check must always fetch at least once")
	assert.True(t, result.Success)
	assert.Len(t, f.history.saved, 1)
}

func TestNetworkGateIsNotAFailure(t *testing.T) {
	f := newFixture(t, denyPolicy{}, &stubFetcher{responses: []fetchResponse{{content: []byte("x")}}})

	source := newTestSource()
	source.ConsecutiveFailures = 4
	previousCheck := time.Now().Add(-time.Hour)
	source.LastCheckTime = previousCheck

	result, err := f.checker.Check(context.Background(), source)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Zero(t, f.fetcher.calls, "gate must run before any fetch")
	assert.Equal(t, 4, f.sources.failures, "failure counter untouched")
	assert.Equal(t, previousCheck, f.sources.lastCheckTime, "last check time untouched")
}

func TestConcurrentCheckRejected(t *testing.T) {
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{{content: []byte("x")}}})
	source := newTestSource()

	require.True(t, f.checker.markInFlight(source.ID))
	_, err := f.checker.Check(context.Background(), source)
	assert.ErrorIs(t, err, errorx.ErrCheckInFlight)

	f.checker.clearInFlight(source.ID)
	_, err = f.checker.Check(context.Background(), source)
	assert.NoError(t, err)
}

func TestSuccessClearsError(t *testing.T) {
	f := newFixture(t, allowAllPolicy{}, &stubFetcher{responses: []fetchResponse{{content: []byte("fine")}}})

	source := newTestSource()
	source.LastError = "previous failure"
	source.ConsecutiveFailures = 3

	_, err := f.checker.Check(context.Background(), source)

	require.NoError(t, err)
	assert.Empty(t, f.sources.errText)
	assert.Zero(t, f.sources.failures)
	assert.Empty(t, source.LastError)
	assert.Zero(t, source.ConsecutiveFailures)
}
