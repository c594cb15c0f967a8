package domain

import (
	"time"

	"github.com/moznion/go-optional"
)

// Event 决策类型
type Event string

const (
	EventTrendRecorded Event = "trend_recorded"     // 仅记录趋势观测
	EventDeferred      Event = "deferred"           // 趋势缺失/过期，信号挂起
	EventNewTrade      Event = "new_trade"          // 空仓开新仓
	EventReversal      Event = "exit_and_new_entry" // 持仓时平仓并反手
	EventExit          Event = "exit"               // 平仓信号
)

// Decision 引擎对一条输入信号的决策结果（不持久化）
type Decision struct {
	ID               string                   `json:"decision_id"`
	Instrument       string                   `json:"instrument"`
	Event            Event                    `json:"event"`
	OK               bool                     `json:"ok"`
	Instructions     []Instruction            `json:"instructions"`
	Results          []DeliveryResult         `json:"results"`
	FromDirection    Direction                `json:"from_direction"`
	ToDirection      Direction                `json:"to_direction"`
	Price            optional.Option[float64] `json:"price,omitempty"`
	Trend            *TrendObservation        `json:"trend,omitempty"`
	TriggeredByTrend bool                     `json:"triggered_by_trend,omitempty"`
	Invariant        string                   `json:"invariant_violation,omitempty"`
	DecidedAt        time.Time                `json:"decided_at"`
}

// Emits 是否产生了下游指令
func (d *Decision) Emits() bool {
	return len(d.Instructions) > 0
}
