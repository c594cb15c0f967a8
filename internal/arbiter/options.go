package arbiter

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultFreshnessWindow 趋势观测被视为新鲜的默认时长
const DefaultFreshnessWindow = 5 * time.Second

// Option 引擎选项
type Option func(*Engine)

// WithClock 替换引擎时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFreshnessWindow 非正值被忽略
func WithFreshnessWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithQuantity 开仓与反手平仓携带的数量；0 表示不带数量
func WithQuantity(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.quantity = n
		}
	}
}

// WithInterval 趋势更新未携带周期时使用的默认周期
func WithInterval(interval string) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

// WithLogger 替换日志
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
