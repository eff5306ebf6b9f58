package cpu

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultGlobalQueueShards is used when PoolOptions.GlobalQueueShards is
// zero.
const DefaultGlobalQueueShards = 8

// GlobalQueue is a multi-producer multi-consumer FIFO shared by every worker
// in a pool, used for overflow from local queues and for work submitted from
// outside any worker. It is internally sharded so that concurrent producers
// and consumers contend on different mutexes most of the time; TryPop takes
// a thread id hint to prefer the shard that id is unlikely to be contending
// on, then rotates through the rest so no shard — and therefore no
// submitter — starves.
//
// Push always succeeds unless MaxLen is configured and already reached, in
// which case it is treated as the fatal configuration error the scheduler has
// no other story for: the handle is not queued and OnFull is invoked (by
// default defaultAbort, which logs and calls os.Exit(1)).
type GlobalQueue struct {
	shards []*gqShard
	next   atomic.Uint64
	maxLen int
	onFull func()
}

type gqShard struct {
	mu    sync.Mutex
	items list.List
}

// GlobalQueueOptions configures a [GlobalQueue].
type GlobalQueueOptions struct {
	// Shards is the number of internal FIFO shards. Defaults to
	// DefaultGlobalQueueShards.
	Shards int
	// MaxLen bounds the total number of queued handles across all shards.
	// Zero means unbounded.
	MaxLen int
	// OnFull is invoked when Push would exceed MaxLen; the handle is not
	// queued, and Push logs nothing itself. Defaults to the package-level
	// abort hook, which logs the overflow and calls os.Exit(1).
	OnFull func()
}

// NewGlobalQueue creates a global queue per opt.
func NewGlobalQueue(opt GlobalQueueOptions) *GlobalQueue {
	shards := opt.Shards
	if shards <= 0 {
		shards = DefaultGlobalQueueShards
	}
	g := &GlobalQueue{
		shards: make([]*gqShard, shards),
		maxLen: opt.MaxLen,
		onFull: opt.OnFull,
	}
	for i := range g.shards {
		g.shards[i] = &gqShard{}
	}
	if g.onFull == nil {
		g.onFull = defaultAbort
	}
	return g
}

// Push enqueues h. Safe for concurrent use by any number of producers.
func (g *GlobalQueue) Push(h Handle) {
	if g.maxLen > 0 && g.Len() >= g.maxLen {
		g.onFull()
		return
	}
	i := g.next.Add(1) % uint64(len(g.shards))
	s := g.shards[i]
	s.mu.Lock()
	s.items.PushBack(h)
	s.mu.Unlock()
}

// TryPop removes and returns a handle if one is available, preferring the
// shard threadID maps to and rotating through the rest on a miss. Functional
// semantics only: "some handle enqueued before this call returns, if any is
// available" — threadID never affects which handle is returned, only which
// shard is checked first.
func (g *GlobalQueue) TryPop(threadID int) (Handle, bool) {
	n := len(g.shards)
	start := threadID % n
	if start < 0 {
		start += n
	}
	for i := 0; i < n; i++ {
		s := g.shards[(start+i)%n]
		s.mu.Lock()
		if front := s.items.Front(); front != nil {
			s.items.Remove(front)
			s.mu.Unlock()
			// front.Value is a true-nil any for the shutdown sentinel (a nil
			// Handle loses its dynamic type crossing the list.List boundary),
			// so the single-result form would panic; comma-ok yields the nil
			// Handle that shutdown expects.
			h, _ := front.Value.(Handle)
			return h, true
		}
		s.mu.Unlock()
	}
	return nil, false
}

// Len reports the total number of queued handles across all shards.
// Telemetry only; racy with concurrent Push/TryPop by design (a snapshot).
func (g *GlobalQueue) Len() int {
	n := 0
	for _, s := range g.shards {
		s.mu.Lock()
		n += s.items.Len()
		s.mu.Unlock()
	}
	return n
}

// Drain removes and returns every handle still queued. Used only during pool
// teardown.
func (g *GlobalQueue) Drain() []Handle {
	var out []Handle
	for _, s := range g.shards {
		s.mu.Lock()
		for e := s.items.Front(); e != nil; {
			next := e.Next()
			h, _ := e.Value.(Handle)
			out = append(out, h)
			s.items.Remove(e)
			e = next
		}
		s.mu.Unlock()
	}
	return out
}
