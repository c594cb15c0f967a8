package domain

import (
	"time"

	"github.com/moznion/go-optional"
)

// Direction 持仓方向
type Direction string

const (
	DirectionNone  Direction = "none"  // 空仓
	DirectionLong  Direction = "long"  // 多头
	DirectionShort Direction = "short" // 空头
)

// Opposite 返回反向；none 没有反向，返回 none
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNone
	}
}

// EntryAction 开仓方向对应的下单动作
func (d Direction) EntryAction() (Action, bool) {
	switch d {
	case DirectionLong:
		return ActionBuy, true
	case DirectionShort:
		return ActionSell, true
	default:
		return "", false
	}
}

// Position 单个品种的仓位记录（一个品种只有一个逻辑仓位）
//
// 不变量：IsOpen == false 时 Direction 必为 none。
type Position struct {
	Instrument     string                   `json:"instrument"`
	IsOpen         bool                     `json:"open"`
	Direction      Direction                `json:"direction"`
	Quantity       int                      `json:"quantity"`
	OpenedAt       *time.Time               `json:"opened_at,omitempty"`
	ClosedAt       *time.Time               `json:"closed_at,omitempty"`
	ReferencePrice optional.Option[float64] `json:"price,omitempty"`
}

// FlatPosition 返回品种的默认空仓状态
func FlatPosition(instrument string) Position {
	return Position{Instrument: instrument, Direction: DirectionNone}
}

// Valid 检查仓位不变量
func (p Position) Valid() bool {
	if !p.IsOpen {
		return p.Direction == DirectionNone
	}
	return p.Direction == DirectionLong || p.Direction == DirectionShort
}

// TrendObservation 品种最近一次趋势观测（价格相对参考均线的位置）
type TrendObservation struct {
	Instrument      string    `json:"instrument"`
	AboveReference  bool      `json:"above_reference"`
	ReferenceValue  float64   `json:"reference_value"`
	LastClose       float64   `json:"close"`
	SourceTimestamp string    `json:"time"`
	Interval        string    `json:"interval,omitempty"`
	ReceivedAt      time.Time `json:"received_at"`
}

// DesiredDirection 按趋势推导期望方向
func (o TrendObservation) DesiredDirection() Direction {
	if o.AboveReference {
		return DirectionLong
	}
	return DirectionShort
}

// Fresh 判断观测在 now 时刻是否仍在新鲜度窗口内（边界视为新鲜）
func (o TrendObservation) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(o.ReceivedAt) <= window
}

// PendingTrade 等待趋势确认的交易信号（每个品种最多一个，后到覆盖先到）
type PendingTrade struct {
	Instrument     string                   `json:"instrument"`
	RequestedPrice optional.Option[float64] `json:"price,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}
