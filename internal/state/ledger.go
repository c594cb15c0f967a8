package state

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/betbot/titanbridge/internal/domain"
)

// PositionLedger 每个品种的仓位；未见过的品种视为空仓
type PositionLedger struct {
	items *keyed[domain.Position]
	now   func() time.Time
}

// NewPositionLedger 创建仓位账本
func NewPositionLedger(now func() time.Time) *PositionLedger {
	if now == nil {
		now = time.Now
	}
	return &PositionLedger{items: newKeyed[domain.Position](), now: now}
}

// Get 未记录的品种返回空仓
func (l *PositionLedger) Get(instrument string) domain.Position {
	if pos, ok := l.items.get(instrument); ok {
		return pos
	}
	return domain.FlatPosition(instrument)
}

// SetOpen 记录开仓
func (l *PositionLedger) SetOpen(instrument string, dir domain.Direction, quantity int, price optional.Option[float64]) domain.Position {
	now := l.now()
	pos := domain.Position{
		Instrument:     instrument,
		IsOpen:         true,
		Direction:      dir,
		Quantity:       quantity,
		OpenedAt:       &now,
		ReferencePrice: price,
	}
	l.items.set(instrument, pos)
	return pos
}

// SetFlat 记录平仓，保留上一笔的开仓时间供面板展示
func (l *PositionLedger) SetFlat(instrument string) domain.Position {
	now := l.now()
	pos := domain.FlatPosition(instrument)
	if prev, ok := l.items.get(instrument); ok {
		pos.OpenedAt = prev.OpenedAt
	}
	pos.ClosedAt = &now
	l.items.set(instrument, pos)
	return pos
}

// Snapshot 返回所有仓位的副本
func (l *PositionLedger) Snapshot() map[string]domain.Position {
	return l.items.snapshot()
}
