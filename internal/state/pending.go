package state

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/betbot/titanbridge/internal/domain"
)

// PendingSlots 每个品种一个槽位的挂起交易。
//
// 不是 FIFO 队列：同一品种的新信号直接覆盖旧信号（last-write-wins）。
type PendingSlots struct {
	items *keyed[domain.PendingTrade]
	now   func() time.Time
}

// NewPendingSlots 创建挂起槽位
func NewPendingSlots(now func() time.Time) *PendingSlots {
	if now == nil {
		now = time.Now
	}
	return &PendingSlots{items: newKeyed[domain.PendingTrade](), now: now}
}

// Set 覆盖该品种已有的挂起交易
func (p *PendingSlots) Set(instrument string, price optional.Option[float64]) domain.PendingTrade {
	pt := domain.PendingTrade{
		Instrument:     instrument,
		RequestedPrice: price,
		CreatedAt:      p.now(),
	}
	p.items.set(instrument, pt)
	return pt
}

// TakeIfPresent 原子地取出并删除
func (p *PendingSlots) TakeIfPresent(instrument string) (domain.PendingTrade, bool) {
	return p.items.take(instrument)
}

// Peek 只读查看，不删除（用于状态面板）
func (p *PendingSlots) Peek(instrument string) (domain.PendingTrade, bool) {
	return p.items.get(instrument)
}

// Snapshot 返回所有挂起交易的副本
func (p *PendingSlots) Snapshot() map[string]domain.PendingTrade {
	return p.items.snapshot()
}

// Len 当前挂起数量
func (p *PendingSlots) Len() int {
	return p.items.size()
}
