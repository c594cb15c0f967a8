package state

import "github.com/betbot/titanbridge/internal/domain"

// AuditLog 每个品种最近一次有结论的决策
type AuditLog struct {
	items *keyed[domain.Decision]
}

// NewAuditLog 创建决策记录
func NewAuditLog() *AuditLog {
	return &AuditLog{items: newKeyed[domain.Decision]()}
}

// Record 覆盖该品种的最近决策
func (a *AuditLog) Record(d *domain.Decision) {
	if d == nil || d.Instrument == "" {
		return
	}
	a.items.set(d.Instrument, *d)
}

// Last 最近一次决策
func (a *AuditLog) Last(instrument string) (domain.Decision, bool) {
	return a.items.get(instrument)
}

// Snapshot 返回副本
func (a *AuditLog) Snapshot() map[string]domain.Decision {
	return a.items.snapshot()
}
