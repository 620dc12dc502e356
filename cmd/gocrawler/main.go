// Package main provides the entry point for the gocrawler CLI.
//
// gocrawler crawls the web from a set of seed addresses with a pool of
// concurrent workers, stores every page, link, image and document it finds
// in a SQL database, and recognizes pages whose content was already stored.
//
// Usage:
//
//	gocrawler crawl [seed ...]
//	gocrawler stats
//
// See --help for all available options.
package main

func main() {
	Execute()
}
