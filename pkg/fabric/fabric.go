// Package fabric is a bulk-synchronous, multi-rank message-passing layer for
// in-process SPMD computations. Each rank is one goroutine that owns a shard
// of the key space; mutations travel as asynchronous visit messages delivered
// on the owning rank, and barriers detect cluster-wide quiescence before
// releasing anyone.
//
// The model deliberately mirrors a partitioned-global-address-space runtime:
// sends are fire-and-forget, messages from one origin to one target key stay
// in submission order, handlers run with exclusive access to their rank's
// shard, and the only synchronization primitive is the collective barrier.
package fabric

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Message is a visit addressed to a key. The concrete type is the message's
// tag: the receiving rank's dispatch handler type-switches on it.
type Message interface {
	Key() uint32
}

// Handler processes a single message on the rank that owns the message's key.
// It runs with exclusive access to that rank's shard and may send further
// messages through r.
type Handler func(r *Rank, m Message)

// Body is the SPMD program executed by every rank.
type Body func(ctx context.Context, r *Rank) error

// Comm is a communicator over a fixed set of ranks.
type Comm struct {
	ranks   []*Rank
	handler Handler

	mu       sync.Mutex
	cond     *sync.Cond
	inflight int  // messages enqueued whose handler has not completed
	idle     int  // ranks parked inside the current barrier
	epoch    uint64

	reduce reduceState
}

// Rank is a single executor. All methods must be called from the rank's own
// goroutine (the SPMD body or a handler running on it), except that Send is
// also what handlers use to forward work to other ranks.
type Rank struct {
	comm *Comm
	id   int

	inbox     []Message // guarded by comm.mu
	callbacks []func()  // rank-private: touched only by the owning goroutine
}

// New creates a communicator with n ranks sharing a single dispatch handler.
func New(n int, handler Handler) *Comm {
	if n < 1 {
		n = 1
	}
	c := &Comm{handler: handler}
	c.cond = sync.NewCond(&c.mu)
	c.ranks = make([]*Rank, n)
	for i := range c.ranks {
		c.ranks[i] = &Rank{comm: c, id: i}
	}
	return c
}

// Size returns the number of ranks.
func (c *Comm) Size() int { return len(c.ranks) }

// Owner maps a key to the rank that owns it. The key is avalanched first so
// that contiguous vertex IDs spread evenly.
func (c *Comm) Owner(key uint32) int {
	h := key
	h ^= h >> 16
	h *= 0x7FEB352D
	h ^= h >> 15
	h *= 0x846CA68B
	h ^= h >> 16
	return int(h % uint32(len(c.ranks)))
}

// Run executes body on every rank concurrently and waits for all of them.
// The first non-nil error cancels the group's context.
func (c *Comm) Run(ctx context.Context, body Body) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range c.ranks {
		r := r
		g.Go(func() error {
			return body(ctx, r)
		})
	}
	return g.Wait()
}

// ID returns this rank's index in [0, Size).
func (r *Rank) ID() int { return r.id }

// Comm returns the communicator this rank belongs to.
func (r *Rank) Comm() *Comm { return r.comm }

// Send enqueues m for delivery on the rank owning m.Key. Delivery happens
// before the next barrier completes. Sends from the same origin to the same
// key are processed in submission order.
func (r *Rank) Send(m Message) {
	c := r.comm
	dst := c.ranks[c.Owner(m.Key())]
	c.mu.Lock()
	dst.inbox = append(dst.inbox, m)
	c.inflight++
	c.mu.Unlock()
	c.cond.Broadcast()
}

// OnPreBarrier registers f to run once on this rank before the enclosing
// barrier can complete. The callback may send messages and re-register
// itself; the barrier drains everything transitively.
func (r *Rank) OnPreBarrier(f func()) {
	r.callbacks = append(r.callbacks, f)
}

// takeInbox swaps out this rank's pending messages.
func (r *Rank) takeInbox() []Message {
	c := r.comm
	c.mu.Lock()
	batch := r.inbox
	r.inbox = nil
	c.mu.Unlock()
	return batch
}

// drain processes every message currently queued for this rank. Reports
// whether any work was done.
func (r *Rank) drain() bool {
	worked := false
	for {
		batch := r.takeInbox()
		if len(batch) == 0 {
			return worked
		}
		worked = true
		for _, m := range batch {
			r.comm.handler(r, m)
		}
		c := r.comm
		c.mu.Lock()
		c.inflight -= len(batch)
		c.mu.Unlock()
	}
}

// Barrier is the collective rendezvous. It delivers all in-flight messages
// (including messages sent by handlers and pre-barrier callbacks) and returns
// once every rank is idle and nothing remains in flight.
func (r *Rank) Barrier() {
	c := r.comm
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	for {
		worked := r.drain()

		if len(r.callbacks) > 0 {
			f := r.callbacks[0]
			r.callbacks = r.callbacks[1:]
			f()
			continue
		}
		if worked {
			continue
		}

		c.mu.Lock()
		if len(r.inbox) > 0 {
			c.mu.Unlock()
			continue
		}
		c.idle++
		if c.idle == len(c.ranks) && c.inflight == 0 {
			// Cluster-wide quiescence: release everyone.
			c.idle = 0
			c.epoch++
			c.mu.Unlock()
			c.cond.Broadcast()
			return
		}
		for c.epoch == epoch && len(r.inbox) == 0 {
			c.cond.Wait()
		}
		if c.epoch != epoch {
			c.mu.Unlock()
			return
		}
		// New work arrived for us; resume draining.
		c.idle--
		c.mu.Unlock()
	}
}
