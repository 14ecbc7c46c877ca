// Package cli implements the command-line interface for high-lakes.
//
// The cli package provides the Cobra-based CLI: scrape runs the full pipeline once, watch
// runs it on a schedule, and the remaining commands expose each step (county IDs, lake
// tables, the open data download, enrichment, flattening, the history archive and
// notifications) on its own. Output is text or JSON.
package cli
