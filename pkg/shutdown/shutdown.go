// Package shutdown 进程退出时按注册顺序的逆序执行清理。
package shutdown

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/betbot/titanbridge/pkg/logger"
)

// Handler 关闭回调；ctx 带超时，回调应在其结束前返回
type Handler func(ctx context.Context) error

type entry struct {
	name    string
	handler Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	mu      sync.Mutex
	entries []entry
	done    bool
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调，后注册的先执行（先停入口，再停依赖）
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, handler: handler})
}

// Shutdown 依次执行回调，只执行一次；超时后不再等待剩余回调
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	entries := make([]entry, len(m.entries))
	copy(entries, m.entries)
	m.mu.Unlock()

	if len(entries) == 0 {
		logger.Info("没有注册的关闭回调")
		return nil
	}
	logger.Infof("开始优雅关闭，共 %d 个回调", len(entries))

	var errs []string
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := run(ctx, e.handler); err != nil {
			logger.Warnf("关闭 %s 失败: %v", e.name, err)
			errs = append(errs, fmt.Sprintf("%s: %v", e.name, err))
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "shutdown timed out")
			}
			continue
		}
		logger.Infof("已关闭: %s", e.name)
	}

	if len(errs) > 0 {
		return errors.Errorf("shutdown errors: %v", errs)
	}
	logger.Info("所有关闭回调已完成")
	return nil
}

// run 在回调不理会 ctx 时也能按超时返回
func run(ctx context.Context, h Handler) error {
	done := make(chan error, 1)
	go func() { done <- h(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
