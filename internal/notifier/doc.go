// Package notifier provides notification interfaces and implementations for new fish plants.
//
// After a scrape, plants that were not in the previous snapshot can be announced. The
// package supports posting to Twitter and a dry-run mode that prints the messages instead.
package notifier
