// Package arbiter 按品种仲裁趋势更新、开仓信号与平仓信号，产出有序的下单指令并维护仓位账本。
//
// 同一品种的 读取-决策-投递-写回 在该品种的锁内完成，不同品种完全并行。
package arbiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/titanbridge/internal/domain"
	"github.com/betbot/titanbridge/internal/metrics"
	"github.com/betbot/titanbridge/internal/signal"
	"github.com/betbot/titanbridge/internal/state"
)

// Deliverer 把一条指令投递到执行端点。失败体现在结果中，引擎不重试。
type Deliverer interface {
	Deliver(ctx context.Context, in domain.Instruction) domain.DeliveryResult
}

// Engine 仲裁引擎，进程内唯一，独占全部状态存储
type Engine struct {
	deliverer Deliverer
	now       func() time.Time
	window    time.Duration
	quantity  int
	interval  string
	log       *logrus.Entry

	locks     *instrumentLocks
	trends    *state.TrendStore
	pending   *state.PendingSlots
	positions *state.PositionLedger
	audit     *state.AuditLog
}

// New 创建引擎
func New(d Deliverer, opts ...Option) *Engine {
	e := &Engine{
		deliverer: d,
		now:       time.Now,
		window:    DefaultFreshnessWindow,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		locks:     newInstrumentLocks(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "arbiter")
	e.trends = state.NewTrendStore(e.now)
	e.pending = state.NewPendingSlots(e.now)
	e.positions = state.NewPositionLedger(e.now)
	e.audit = state.NewAuditLog()
	return e
}

// FreshnessWindow 当前新鲜度窗口
func (e *Engine) FreshnessWindow() time.Duration {
	return e.window
}

// Handle 按信号类别分派
func (e *Engine) Handle(ctx context.Context, s *signal.Signal) (*domain.Decision, error) {
	if s == nil {
		return nil, errors.New("nil signal")
	}
	switch s.Kind {
	case signal.KindTrendUpdate:
		return e.OnTrendUpdate(ctx, s.Trend), nil
	case signal.KindTradeDesign:
		return e.OnTradeDesign(ctx, s.Instrument, s.Price), nil
	case signal.KindExit:
		return e.OnExit(ctx, s.Instrument, s.Price), nil
	default:
		return nil, errors.Errorf("unsupported signal kind %q", s.Kind)
	}
}

// OnTrendUpdate 记录趋势观测；若该品种有挂起交易，立即以挂起时的价格执行。
func (e *Engine) OnTrendUpdate(ctx context.Context, u signal.TrendUpdate) *domain.Decision {
	unlock := e.locks.lock(u.Instrument)
	defer unlock()

	obs := e.trends.Upsert(u.Instrument, domain.TrendObservation{
		AboveReference:  u.AboveReference,
		ReferenceValue:  u.ReferenceValue,
		LastClose:       u.LastClose,
		SourceTimestamp: u.SourceTimestamp,
		Interval:        u.Interval,
	})
	e.log.WithFields(logrus.Fields{
		"instrument": u.Instrument,
		"above":      obs.AboveReference,
		"reference":  obs.ReferenceValue,
		"close":      obs.LastClose,
	}).Info("趋势已更新")

	if pt, ok := e.pending.TakeIfPresent(u.Instrument); ok {
		metrics.PendingTriggered.Add(1)
		e.log.WithField("instrument", u.Instrument).Info("趋势到达，执行挂起交易")
		return e.tradeLocked(ctx, u.Instrument, pt.RequestedPrice, true)
	}

	dir := e.positions.Get(u.Instrument).Direction
	return &domain.Decision{
		ID:            uuid.NewString(),
		Instrument:    u.Instrument,
		Event:         domain.EventTrendRecorded,
		OK:            true,
		Instructions:  []domain.Instruction{},
		Results:       []domain.DeliveryResult{},
		FromDirection: dir,
		ToDirection:   dir,
		Trend:         &obs,
		DecidedAt:     e.now(),
	}
}

// OnTradeDesign 开仓信号：趋势缺失或过期时挂起，否则开仓或反手
func (e *Engine) OnTradeDesign(ctx context.Context, instrument string, price optional.Option[float64]) *domain.Decision {
	unlock := e.locks.lock(instrument)
	defer unlock()
	return e.tradeLocked(ctx, instrument, price, false)
}

// OnExit 无条件发送平仓指令并置为空仓，空仓时同样发送
func (e *Engine) OnExit(ctx context.Context, instrument string, price optional.Option[float64]) *domain.Decision {
	unlock := e.locks.lock(instrument)
	defer unlock()

	pos := e.positions.Get(instrument)
	d := e.newDecision(instrument, domain.EventExit, price, pos.Direction)

	// 单独的平仓信号不带数量，由执行端平掉全部持仓
	ins := e.instruction(instrument, domain.ActionExit, price, false)
	e.send(ctx, d, ins)

	e.positions.SetFlat(instrument)
	d.ToDirection = domain.DirectionNone
	return e.finish(d)
}

// tradeLocked 调用方须持有品种锁；triggered 表示由趋势更新触发的挂起交易
func (e *Engine) tradeLocked(ctx context.Context, instrument string, price optional.Option[float64], triggered bool) *domain.Decision {
	now := e.now()
	obs, ok := e.trends.Get(instrument)
	if !ok || !obs.Fresh(now, e.window) {
		e.pending.Set(instrument, price)
		metrics.DecisionsDeferred.Add(1)

		fields := logrus.Fields{"instrument": instrument, "has_trend": ok}
		if ok {
			fields["trend_age"] = now.Sub(obs.ReceivedAt).String()
		}
		e.log.WithFields(fields).Info("趋势缺失或过期，交易信号挂起")

		pos := e.positions.Get(instrument)
		d := e.newDecision(instrument, domain.EventDeferred, price, pos.Direction)
		d.ToDirection = pos.Direction
		d.TriggeredByTrend = triggered
		if ok {
			d.Trend = &obs
		}
		return e.finish(d)
	}

	pos := e.positions.Get(instrument)
	event := domain.EventNewTrade
	if pos.IsOpen {
		event = domain.EventReversal
	}
	d := e.newDecision(instrument, event, price, pos.Direction)
	d.Trend = &obs
	d.TriggeredByTrend = triggered

	if !pos.IsOpen {
		return e.enterLocked(ctx, d, obs)
	}
	return e.reverseLocked(ctx, d, pos)
}

func (e *Engine) enterLocked(ctx context.Context, d *domain.Decision, obs domain.TrendObservation) *domain.Decision {
	instrument, price := d.Instrument, d.Price
	desired := obs.DesiredDirection()
	action, _ := desired.EntryAction()

	e.log.WithFields(logrus.Fields{
		"instrument": instrument,
		"direction":  desired,
	}).Info("空仓，按趋势开仓")

	e.send(ctx, d, e.instruction(instrument, action, price, true))

	// 投递失败也更新账本，由外部对账
	e.positions.SetOpen(instrument, desired, e.quantity, price)
	d.ToDirection = desired
	return e.finish(d)
}

// reverseLocked 持仓中再次收到开仓信号：先平仓，再反向开仓。
// 反向以当前持仓为准，与趋势方向无关；两条指令都会尝试，不做原子保证。
func (e *Engine) reverseLocked(ctx context.Context, d *domain.Decision, pos domain.Position) *domain.Decision {
	instrument, price := d.Instrument, d.Price

	e.log.WithFields(logrus.Fields{
		"instrument": instrument,
		"current":    pos.Direction,
	}).Info("持仓中收到开仓信号，平仓并反手")

	e.send(ctx, d, e.instruction(instrument, domain.ActionExit, price, true))

	target := pos.Direction.Opposite()
	action, ok := target.EntryAction()
	if !ok {
		d.Invariant = fmt.Sprintf("open position with direction %q", pos.Direction)
		metrics.InvariantViolations.Add(1)
		e.log.WithFields(logrus.Fields{
			"instrument": instrument,
			"direction":  pos.Direction,
		}).Error("仓位状态异常：持仓但方向未知，无法反手，置为空仓")

		e.positions.SetFlat(instrument)
		d.ToDirection = domain.DirectionNone
		return e.finish(d)
	}

	e.send(ctx, d, e.instruction(instrument, action, price, true))
	e.positions.SetOpen(instrument, target, e.quantity, price)
	d.ToDirection = target
	return e.finish(d)
}

func (e *Engine) newDecision(instrument string, event domain.Event, price optional.Option[float64], from domain.Direction) *domain.Decision {
	return &domain.Decision{
		ID:            uuid.NewString(),
		Instrument:    instrument,
		Event:         event,
		OK:            true,
		Instructions:  []domain.Instruction{},
		Results:       []domain.DeliveryResult{},
		FromDirection: from,
		Price:         price,
		DecidedAt:     e.now(),
	}
}

// instruction 组装指令；withQty 为 false 或未配置数量时省略 quantity
func (e *Engine) instruction(instrument string, action domain.Action, price optional.Option[float64], withQty bool) domain.Instruction {
	ins := domain.Instruction{
		Ticker:   instrument,
		Action:   action,
		Price:    price,
		Time:     e.now().UTC(),
		Interval: e.interval,
	}
	if withQty && e.quantity > 0 {
		ins.Quantity = optional.Some(e.quantity)
	}
	if obs, ok := e.trends.Get(instrument); ok && obs.Interval != "" {
		ins.Interval = obs.Interval
	}
	return ins
}

// send 投递并把结果并入决策，ok 取所有指令结果的与
func (e *Engine) send(ctx context.Context, d *domain.Decision, ins domain.Instruction) {
	res := e.deliverer.Deliver(ctx, ins)
	res.Action = ins.Action

	d.Instructions = append(d.Instructions, ins)
	d.Results = append(d.Results, res)
	d.OK = d.OK && res.OK

	metrics.InstructionsSent.Add(1)
	if !res.OK {
		metrics.DeliveryFailures.Add(1)
		e.log.WithFields(logrus.Fields{
			"instrument":  ins.Ticker,
			"action":      ins.Action,
			"status_code": res.StatusCode,
			"decision_id": d.ID,
		}).Warnf("指令投递失败: %s", res.Error)
	}
}

// finish 校验仓位不变量并记录审计
func (e *Engine) finish(d *domain.Decision) *domain.Decision {
	if pos := e.positions.Get(d.Instrument); !pos.Valid() {
		metrics.InvariantViolations.Add(1)
		e.log.WithFields(logrus.Fields{
			"instrument": d.Instrument,
			"open":       pos.IsOpen,
			"direction":  pos.Direction,
		}).Error("仓位不变量被破坏，重置为空仓")
		e.positions.SetFlat(d.Instrument)
		d.ToDirection = domain.DirectionNone
		if d.Invariant == "" {
			d.Invariant = fmt.Sprintf("position open=%v direction=%q", pos.IsOpen, pos.Direction)
		}
	}
	e.audit.Record(d)

	e.log.WithFields(logrus.Fields{
		"instrument":  d.Instrument,
		"event":       d.Event,
		"ok":          d.OK,
		"decision_id": d.ID,
		"from":        d.FromDirection,
		"to":          d.ToDirection,
	}).Info("决策完成")
	return d
}
