// Package scraper provides HTTP fetching and HTML parsing for WDFW high lakes.
//
// The scraper reads the county list from the high-lakes search page, walks the paginated
// lake table for each county, and then visits each lake page to extract the table of the
// 10 most recent fish plants. Requests share one rate limiter and lake pages are fetched
// on a bounded worker pool.
package scraper
