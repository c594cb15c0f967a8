package state

import (
	"time"

	"github.com/betbot/titanbridge/internal/domain"
)

// TrendStore 每个品种最近一次趋势观测，新观测无条件覆盖旧观测
type TrendStore struct {
	items *keyed[domain.TrendObservation]
	now   func() time.Time
}

// NewTrendStore now 为引擎时钟，用于给观测打 ReceivedAt
func NewTrendStore(now func() time.Time) *TrendStore {
	if now == nil {
		now = time.Now
	}
	return &TrendStore{items: newKeyed[domain.TrendObservation](), now: now}
}

// Upsert 写入观测并以当前引擎时钟覆盖 ReceivedAt，返回写入后的观测
func (s *TrendStore) Upsert(instrument string, obs domain.TrendObservation) domain.TrendObservation {
	obs.Instrument = instrument
	obs.ReceivedAt = s.now()
	s.items.set(instrument, obs)
	return obs
}

// Get 读取观测
func (s *TrendStore) Get(instrument string) (domain.TrendObservation, bool) {
	return s.items.get(instrument)
}

// Snapshot 返回所有观测的副本
func (s *TrendStore) Snapshot() map[string]domain.TrendObservation {
	return s.items.snapshot()
}

// Len 已知品种数量
func (s *TrendStore) Len() int {
	return s.items.size()
}
