package state

import (
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/titanbridge/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)}
}

func TestTrendStoreUpsertOverwritesAndStampsReceivedAt(t *testing.T) {
	clk := newClock()
	s := NewTrendStore(clk.Now)

	_, ok := s.Get("MNQZ2025")
	assert.False(t, ok)

	s.Upsert("MNQZ2025", domain.TrendObservation{AboveReference: true, ReceivedAt: time.Unix(0, 0)})
	clk.Advance(2 * time.Second)
	got := s.Upsert("MNQZ2025", domain.TrendObservation{AboveReference: false, ReferenceValue: 1})

	assert.Equal(t, "MNQZ2025", got.Instrument)
	assert.Equal(t, clk.Now(), got.ReceivedAt)

	stored, ok := s.Get("MNQZ2025")
	require.True(t, ok)
	assert.False(t, stored.AboveReference)
	assert.Equal(t, 1, s.Len())
}

func TestPendingSlotsLastWriteWins(t *testing.T) {
	clk := newClock()
	p := NewPendingSlots(clk.Now)

	p.Set("MNQZ2025", optional.Some(100.0))
	clk.Advance(time.Second)
	p.Set("MNQZ2025", optional.Some(200.0))
	assert.Equal(t, 1, p.Len())

	pt, ok := p.TakeIfPresent("MNQZ2025")
	require.True(t, ok)
	assert.Equal(t, 200.0, pt.RequestedPrice.Unwrap())
	assert.Equal(t, clk.Now(), pt.CreatedAt)

	_, ok = p.TakeIfPresent("MNQZ2025")
	assert.False(t, ok)
}

func TestPendingSlotsTakeIsExclusive(t *testing.T) {
	p := NewPendingSlots(nil)
	p.Set("ESZ2025", optional.None[float64]())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.TakeIfPresent("ESZ2025"); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, taken)
}

func TestPendingPeekDoesNotRemove(t *testing.T) {
	p := NewPendingSlots(nil)
	p.Set("NQ1!", optional.Some(1.5))
	_, ok := p.Peek("NQ1!")
	assert.True(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestPositionLedgerDefaultsToFlat(t *testing.T) {
	l := NewPositionLedger(nil)
	pos := l.Get("MNQZ2025")
	assert.False(t, pos.IsOpen)
	assert.Equal(t, domain.DirectionNone, pos.Direction)
	assert.True(t, pos.Valid())
	assert.Empty(t, l.Snapshot())
}

func TestPositionLedgerOpenAndFlat(t *testing.T) {
	clk := newClock()
	l := NewPositionLedger(clk.Now)

	opened := l.SetOpen("MNQZ2025", domain.DirectionShort, 2, optional.Some(25787.5))
	require.NotNil(t, opened.OpenedAt)
	assert.True(t, l.Get("MNQZ2025").IsOpen)
	assert.Equal(t, domain.DirectionShort, l.Get("MNQZ2025").Direction)
	assert.Equal(t, 2, l.Get("MNQZ2025").Quantity)

	clk.Advance(time.Minute)
	flat := l.SetFlat("MNQZ2025")
	assert.False(t, flat.IsOpen)
	assert.Equal(t, domain.DirectionNone, flat.Direction)
	require.NotNil(t, flat.ClosedAt)
	assert.Equal(t, clk.Now(), *flat.ClosedAt)
	assert.Equal(t, *opened.OpenedAt, *flat.OpenedAt)
	assert.True(t, flat.ReferencePrice.IsNone())

	l.SetFlat("ESZ2025")
	assert.Len(t, l.Snapshot(), 2)
}

func TestSnapshotIsCopy(t *testing.T) {
	l := NewPositionLedger(nil)
	l.SetOpen("MNQZ2025", domain.DirectionLong, 1, optional.None[float64]())

	snap := l.Snapshot()
	delete(snap, "MNQZ2025")
	assert.True(t, l.Get("MNQZ2025").IsOpen)
}

func TestAuditLogKeepsLatest(t *testing.T) {
	a := NewAuditLog()
	a.Record(nil)
	a.Record(&domain.Decision{ID: "no-instrument"})
	assert.Empty(t, a.Snapshot())

	a.Record(&domain.Decision{ID: "1", Instrument: "MNQZ2025", Event: domain.EventDeferred})
	a.Record(&domain.Decision{ID: "2", Instrument: "MNQZ2025", Event: domain.EventNewTrade})

	last, ok := a.Last("MNQZ2025")
	require.True(t, ok)
	assert.Equal(t, "2", last.ID)
	assert.Equal(t, domain.EventNewTrade, last.Event)
}
