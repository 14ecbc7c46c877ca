// Package lake provides types and functions for WDFW high lakes and their fish plants.
//
// The lake package handles lake and plant representation, identification, retention of the
// most recent plants per lake, and change detection through snapshot-based diffing. Each lake
// and plant is assigned a deterministic SHA1-based ID so records can be tracked across runs.
package lake
