package delivery

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/betbot/titanbridge/internal/domain"
)

// DryRun 只记录日志并视为成功，不发起网络请求
type DryRun struct {
	log *logrus.Entry
}

// NewDryRun l 为 nil 时使用全局 logrus
func NewDryRun(l *logrus.Entry) *DryRun {
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DryRun{log: l.WithField("component", "delivery").WithField("dry_run", true)}
}

func (d *DryRun) Deliver(_ context.Context, ins domain.Instruction) domain.DeliveryResult {
	d.log.WithFields(logrus.Fields{
		"ticker": ins.Ticker,
		"action": ins.Action,
	}).Infof("[dry-run] 指令未发送: %+v", ins)
	return domain.DeliveryResult{Action: ins.Action, OK: true, Body: "dry-run"}
}
