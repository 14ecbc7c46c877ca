// Package pipeline runs one complete scrape: fetch, extract, enrich, flatten, persist and
// commit.
//
// Lake tables are always scraped from the WDFW site. Plants come from the lake pages, the
// data.wa.gov open data set, or both, according to the configured plants source; the two
// sources are fetched in parallel. The freshly scraped lakes are compared against the
// snapshot left by the previous run so newly stocked plants can be reported.
package pipeline
