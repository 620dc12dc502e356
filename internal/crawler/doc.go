// Package crawler runs the crawl: a pool of identical workers sharing one
// frontier.
//
// # Architecture
//
// The Engine seeds the frontier, registers the seeds' sites and starts N
// workers. Each worker repeats the same cycle until the frontier is durably
// empty:
//
//  1. Pop an address from the frontier.
//  2. Resolve the address's site through the site registry.
//  3. Fetch the address; failures and non-200 answers drop the item.
//  4. Classify the address by its pattern.
//  5. HTML: store a DUPLICATE record when the content hash is known;
//     otherwise store the page, its images and its links, and queue every
//     link. Other classes: download the document and store it as a BINARY
//     page with its payload.
//  6. Mark the item done, then pause for the configured delay.
//
// No single item can stop the pool. Fetch, parse and store failures are
// logged with the address and the worker id, and a panic while processing
// one item is recovered and counted as a failure.
//
// # Usage
//
//	engine, err := crawler.NewEngine(crawler.Dependencies{
//	    Fetcher: fetchClient,
//	    Store:   store,
//	    Sites:   registry.New(store),
//	    Dedup:   dedup.New(store),
//	}, crawler.WithWorkers(4))
//	stats, err := engine.Run(ctx, []string{"http://example.com/"})
package crawler
