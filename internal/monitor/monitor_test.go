package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"niftyfib/internal/market"
	"niftyfib/internal/signal"
	"niftyfib/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	mu   sync.Mutex
	bars []market.Bar
}

func (f *stubFeed) FetchRecent(ctx context.Context, symbol string, lookback int) []market.Bar {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bars) > lookback {
		return f.bars[len(f.bars)-lookback:]
	}
	return f.bars
}

func (f *stubFeed) set(bars ...market.Bar) {
	f.mu.Lock()
	f.bars = bars
	f.mu.Unlock()
}

type recordingAlerter struct {
	mu   sync.Mutex
	sent []signal.Record
	to   [][]string
	err  error
}

func (a *recordingAlerter) SendLiveAlert(ctx context.Context, recipients []string, rec signal.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, rec)
	a.to = append(a.to, recipients)
	return a.err
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sent)
}

type staticRecipients []string

func (s staticRecipients) List() []string { return s }

var day0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func yesterday(day time.Time) market.Bar {
	return market.Bar{Date: day.AddDate(0, 0, -1), Open: 100, High: 120, Low: 90, Close: 110}
}

// triggerDay opens inside yesterday's range; quietDay opens below yesterday's low.
func triggerDay(day time.Time) market.Bar {
	return market.Bar{Date: day, Open: 110, High: 115, Low: 105, Close: 112}
}

func quietDay(day time.Time) market.Bar {
	return market.Bar{Date: day, Open: 85, High: 95, Low: 80, Close: 90}
}

func newMonitor(t *testing.T, feed BarFeed, alerter Alerter, cfg Config) *Monitor {
	t.Helper()
	cfg.Feed = feed
	cfg.Alerter = alerter
	if cfg.Symbol == "" {
		cfg.Symbol = "NIFTY50"
	}
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{Alerter: &recordingAlerter{}, Symbol: "X"})
	assert.Error(t, err)
	_, err = New(Config{Feed: &stubFeed{}, Symbol: "X"})
	assert.Error(t, err)
	_, err = New(Config{Feed: &stubFeed{}, Alerter: &recordingAlerter{}})
	assert.Error(t, err)
}

func TestTick_StoppedIsNoop(t *testing.T) {
	feed := &stubFeed{}
	feed.set(yesterday(day0), triggerDay(day0))
	alerter := &recordingAlerter{}
	m := newMonitor(t, feed, alerter, Config{})

	res, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, alerter.count())
	assert.False(t, m.Status().Active)
	assert.Nil(t, m.Status().LastTick)
}

func TestStartStop_Idempotent(t *testing.T) {
	m := newMonitor(t, &stubFeed{}, &recordingAlerter{}, Config{})
	m.Start()
	m.Start()
	assert.True(t, m.Active())
	m.Stop()
	m.Stop()
	assert.False(t, m.Active())
}

func TestTick_AlertsOncePerDate(t *testing.T) {
	feed := &stubFeed{}
	feed.set(yesterday(day0), triggerDay(day0))
	alerter := &recordingAlerter{}
	m := newMonitor(t, feed, alerter, Config{Recipients: staticRecipients{"a@example.com"}})
	m.Start()

	res, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, "01/06/2025", res.Date)
	assert.Equal(t, signal.TriggerFired.String(), res.Trigger)

	for i := 0; i < 3; i++ {
		res, err = m.Tick(context.Background())
		require.NoError(t, err)
		assert.False(t, res.Alerted)
		assert.True(t, res.Duplicate)
	}
	require.Equal(t, 1, alerter.count())
	assert.Equal(t, []string{"a@example.com"}, alerter.to[0])
	assert.InDelta(t, 100.0, alerter.sent[0].Buy50, 1e-9)

	st := m.Status()
	require.NotNil(t, st.LastTick)
	assert.True(t, st.LastTick.Duplicate)
}

func TestTick_NewDateAlertsAgain(t *testing.T) {
	feed := &stubFeed{}
	feed.set(yesterday(day0), triggerDay(day0))
	alerter := &recordingAlerter{}
	m := newMonitor(t, feed, alerter, Config{})
	m.Start()

	_, err := m.Tick(context.Background())
	require.NoError(t, err)

	next := day0.AddDate(0, 0, 1)
	feed.set(yesterday(next), triggerDay(next))
	res, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, 2, alerter.count())
}

func TestTick_NoTradeThenTriggerSameDay(t *testing.T) {
	feed := &stubFeed{}
	feed.set(yesterday(day0), quietDay(day0))
	alerter := &recordingAlerter{}
	m := newMonitor(t, feed, alerter, Config{})
	m.Start()

	res, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Alerted)
	assert.Equal(t, signal.NoTrade.String(), res.Trigger)
	assert.Zero(t, alerter.count())

	feed.set(yesterday(day0), triggerDay(day0))
	res, err = m.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, 1, alerter.count())
}

func TestTick_FewerThanTwoBars(t *testing.T) {
	feed := &stubFeed{}
	feed.set(triggerDay(day0))
	alerter := &recordingAlerter{}
	m := newMonitor(t, feed, alerter, Config{})
	m.Start()

	_, err := m.Tick(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, alerter.count())
}

func TestTick_FailedDeliveryIsNotRetried(t *testing.T) {
	feed := &stubFeed{}
	feed.set(yesterday(day0), triggerDay(day0))
	alerter := &recordingAlerter{err: errors.New("smtp down")}
	m := newMonitor(t, feed, alerter, Config{})
	m.Start()

	res, err := m.Tick(context.Background())
	assert.Error(t, err)
	assert.True(t, res.Alerted)

	res, err = m.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, alerter.count())
}

func TestTick_MemoSurvivesRestart(t *testing.T) {
	st, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	feed := &stubFeed{}
	feed.set(yesterday(day0), triggerDay(day0))

	first := &recordingAlerter{}
	m1 := newMonitor(t, feed, first, Config{Memo: st})
	m1.Start()
	res, err := m1.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Alerted)

	days, err := st.AlertedDays(context.Background(), "NIFTY50", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-06"}, days)

	second := &recordingAlerter{}
	m2 := newMonitor(t, feed, second, Config{Memo: st})
	m2.Start()
	res, err = m2.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Zero(t, second.count())
}
