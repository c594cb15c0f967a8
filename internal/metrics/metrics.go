// Package metrics 进程级 expvar 计数器，经 /debug/vars 暴露。
package metrics

import "expvar"

var (
	SignalsReceived     = expvar.NewInt("signals_received")
	SignalsRejected     = expvar.NewInt("signals_rejected")
	DecisionsDeferred   = expvar.NewInt("decisions_deferred")
	PendingTriggered    = expvar.NewInt("pending_triggered")
	InstructionsSent    = expvar.NewInt("instructions_sent")
	DeliveryFailures    = expvar.NewInt("delivery_failures")
	InvariantViolations = expvar.NewInt("invariant_violations")
	RequestsThrottled   = expvar.NewInt("requests_throttled")
)

// Snapshot 读取全部计数器，供状态面板展示
func Snapshot() map[string]int64 {
	return map[string]int64{
		"signals_received":     SignalsReceived.Value(),
		"signals_rejected":     SignalsRejected.Value(),
		"decisions_deferred":   DecisionsDeferred.Value(),
		"pending_triggered":    PendingTriggered.Value(),
		"instructions_sent":    InstructionsSent.Value(),
		"delivery_failures":    DeliveryFailures.Value(),
		"invariant_violations": InvariantViolations.Value(),
		"requests_throttled":   RequestsThrottled.Value(),
	}
}
