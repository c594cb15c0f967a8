package domain

import (
	"time"

	"github.com/moznion/go-optional"
)

// Action 下游指令动作
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionExit Action = "exit"
)

// Instruction 发往执行端点的一条指令
type Instruction struct {
	Ticker   string                   `json:"ticker"`
	Action   Action                   `json:"action"`
	Quantity optional.Option[int]     `json:"quantity,omitempty"`
	Price    optional.Option[float64] `json:"price,omitempty"`
	Time     time.Time                `json:"time"`
	Interval string                   `json:"interval,omitempty"`
}

// DeliveryResult 单条指令的投递结果
type DeliveryResult struct {
	Action     Action        `json:"action"`
	OK         bool          `json:"ok"`
	StatusCode int           `json:"status_code,omitempty"`
	Body       string        `json:"body,omitempty"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency_ns,omitempty"`
}
