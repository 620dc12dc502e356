package frontier

import "errors"

var (
	// ErrDrained is returned by Pop once the queue is empty and no popped
	// item is still in flight. It is the normal end of a crawl.
	ErrDrained = errors.New("frontier drained: no queued or in-flight items")

	// ErrClosed is returned by Add and Pop after Close has been called.
	ErrClosed = errors.New("frontier closed")
)
