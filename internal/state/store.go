// Package state 保存引擎拥有的按品种键控的进程内状态：趋势观测、挂起交易、仓位、最近决策。
// 不做淘汰，一个出现过的品种对应一条记录。
package state

import "sync"

// keyed 通用并发安全的键值存储
type keyed[V any] struct {
	items map[string]V
	mu    sync.RWMutex
}

func newKeyed[V any]() *keyed[V] {
	return &keyed[V]{items: make(map[string]V)}
}

func (k *keyed[V]) get(key string) (V, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.items[key]
	return v, ok
}

func (k *keyed[V]) set(key string, v V) {
	k.mu.Lock()
	k.items[key] = v
	k.mu.Unlock()
}

// take 原子地取出并删除
func (k *keyed[V]) take(key string) (V, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.items[key]
	if ok {
		delete(k.items, key)
	}
	return v, ok
}

func (k *keyed[V]) size() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.items)
}

// snapshot 返回副本，调用方可随意修改
func (k *keyed[V]) snapshot() map[string]V {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]V, len(k.items))
	for key, v := range k.items {
		out[key] = v
	}
	return out
}
