// Package frontier implements the shared work queue of a crawl.
//
// The Frontier is a FIFO of addresses shared by every worker. It does not
// deduplicate: the same address may be queued as many times as it is
// discovered. What it does track is in-flight work. Pop increments an
// in-flight counter and Done decrements it, and the frontier is considered
// drained only when the queue is empty and no popped item is still being
// processed. Workers waiting in Pop are woken through a condition variable
// whenever either number changes, so no worker gives up while another one
// may still enqueue follow-up work.
//
// # Usage
//
//	f := frontier.New()
//	_ = f.Add(ctx, "http://example.com/")
//	for {
//	    address, err := f.Pop(ctx)
//	    if err != nil {
//	        break // frontier.ErrDrained, frontier.ErrClosed or ctx.Err()
//	    }
//	    process(address) // may call f.Add
//	    f.Done()
//	}
package frontier
