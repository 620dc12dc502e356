package frontier

import (
	"context"
	"sync"
)

// Frontier is a concurrency-safe FIFO of addresses with in-flight accounting.
// The zero value is not usable; create one with New.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// items holds queued addresses, oldest first.
	items []string

	// inFlight counts items returned by Pop whose Done has not been called.
	inFlight int

	// blockedAdders counts callers waiting in Add for free capacity.
	blockedAdders int

	// capacity bounds len(items); 0 means unbounded.
	capacity int

	closed bool
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithCapacity bounds the queue to n items. Add blocks while the queue is
// full, except when every in-flight item's worker is itself blocked in Add:
// then the item is admitted over capacity so the crawl can always progress.
// Non-positive values keep the queue unbounded.
func WithCapacity(n int) Option {
	return func(f *Frontier) {
		if n > 0 {
			f.capacity = n
		}
	}
}

// New creates an empty Frontier.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		items: make([]string, 0),
	}
	f.cond = sync.NewCond(&f.mu)

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Add enqueues address. The same address may be added any number of times.
//
// On a bounded frontier Add may block; it returns ctx.Err() if the context
// ends while blocked, and ErrClosed if the frontier is closed.
func (f *Frontier) Add(ctx context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if f.full() {
		stop := context.AfterFunc(ctx, f.wake)
		defer stop()

		f.blockedAdders++
		for f.full() && !f.closed && ctx.Err() == nil && f.blockedAdders < f.inFlight {
			f.cond.Wait()
		}
		f.blockedAdders--

		if f.closed {
			return ErrClosed
		}
		if f.full() {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}

	f.items = append(f.items, address)
	f.cond.Broadcast()
	return nil
}

// Pop removes and returns the oldest queued address and marks it in flight.
// The caller must call Done exactly once when the item, including every Add
// it causes, has been processed.
//
// Pop blocks while the queue is empty but other items are in flight. It
// returns ErrDrained when the queue is empty and nothing is in flight,
// ErrClosed after Close, or ctx.Err() when the context ends first.
func (f *Frontier) Pop(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stop := context.AfterFunc(ctx, f.wake)
	defer stop()

	for {
		switch {
		case f.closed:
			return "", ErrClosed
		case ctx.Err() != nil:
			return "", ctx.Err()
		case len(f.items) > 0:
			address := f.items[0]
			f.items[0] = ""
			f.items = f.items[1:]
			f.inFlight++
			// A slot was freed for blocked adders.
			f.cond.Broadcast()
			return address, nil
		case f.inFlight == 0:
			return "", ErrDrained
		}

		f.cond.Wait()
	}
}

// Done marks one popped item as finished. It panics when called more often
// than Pop succeeded, like sync.WaitGroup does for a negative counter.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight <= 0 {
		panic("frontier: Done called without a matching Pop")
	}
	f.inFlight--
	f.cond.Broadcast()
}

// Close wakes every waiter and makes subsequent Add and Pop calls fail
// with ErrClosed. Closing twice is a no-op.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// IsEmpty reports whether the frontier is durably empty: nothing queued and
// nothing in flight that could still queue more.
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) == 0 && f.inFlight == 0
}

// Len returns the number of queued addresses.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// InFlight returns the number of popped items not yet marked Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Capacity returns the configured bound, or 0 for an unbounded frontier.
func (f *Frontier) Capacity() int {
	return f.capacity
}

// full reports whether a bounded queue has no free slot. Callers hold mu.
func (f *Frontier) full() bool {
	return f.capacity > 0 && len(f.items) >= f.capacity
}

// wake broadcasts on the condition variable so waiters re-check their
// context. It is registered with context.AfterFunc.
func (f *Frontier) wake() {
	f.mu.Lock()
	f.cond.Broadcast()
	f.mu.Unlock()
}
