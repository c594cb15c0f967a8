package arbiter

import (
	"hash/fnv"
	"sync"
)

// instrumentLocks 每个品种一把互斥锁，按需创建，分片 map 降低全局竞争。
// 锁创建后不回收，与状态存储一样一个品种一条。
type instrumentLocks struct {
	shards []lockShard
}

type lockShard struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newInstrumentLocks(shardCount int) *instrumentLocks {
	if shardCount <= 0 {
		shardCount = 32
	}
	shards := make([]lockShard, shardCount)
	for i := range shards {
		shards[i].m = make(map[string]*sync.Mutex)
	}
	return &instrumentLocks{shards: shards}
}

// lock 获取品种锁，返回解锁函数
func (l *instrumentLocks) lock(instrument string) func() {
	mu := l.get(instrument)
	mu.Lock()
	return mu.Unlock
}

func (l *instrumentLocks) get(instrument string) *sync.Mutex {
	sh := l.shard(instrument)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	mu, ok := sh.m[instrument]
	if !ok {
		mu = &sync.Mutex{}
		sh.m[instrument] = mu
	}
	return mu
}

func (l *instrumentLocks) shard(key string) *lockShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}
