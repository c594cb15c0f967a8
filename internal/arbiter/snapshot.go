package arbiter

import (
	"time"

	"github.com/betbot/titanbridge/internal/domain"
	"github.com/betbot/titanbridge/internal/metrics"
)

// InstrumentView 单个品种的只读视图
type InstrumentView struct {
	Trend        *domain.TrendObservation `json:"trend"`
	Position     domain.Position          `json:"position"`
	Pending      *domain.PendingTrade     `json:"pending"`
	LastDecision *domain.Decision         `json:"last_decision"`
}

// Snapshot 状态面板数据
type Snapshot struct {
	GeneratedAt            time.Time                 `json:"generated_at"`
	FreshnessWindowSeconds float64                   `json:"freshness_window_seconds"`
	Counters               map[string]int64          `json:"counters"`
	Instruments            map[string]InstrumentView `json:"instruments"`
}

// Snapshot 各存储分别取副本后合并，不持有品种锁，跨存储不保证同一时刻
func (e *Engine) Snapshot() Snapshot {
	trends := e.trends.Snapshot()
	pending := e.pending.Snapshot()
	positions := e.positions.Snapshot()
	decisions := e.audit.Snapshot()

	views := make(map[string]InstrumentView)
	view := func(instrument string) InstrumentView {
		if v, ok := views[instrument]; ok {
			return v
		}
		return InstrumentView{Position: domain.FlatPosition(instrument)}
	}

	for k, obs := range trends {
		v := view(k)
		v.Trend = &obs
		views[k] = v
	}
	for k, pt := range pending {
		v := view(k)
		v.Pending = &pt
		views[k] = v
	}
	for k, pos := range positions {
		v := view(k)
		v.Position = pos
		views[k] = v
	}
	for k, d := range decisions {
		v := view(k)
		v.LastDecision = &d
		views[k] = v
	}

	return Snapshot{
		GeneratedAt:            e.now().UTC(),
		FreshnessWindowSeconds: e.window.Seconds(),
		Counters:               metrics.Snapshot(),
		Instruments:            views,
	}
}
