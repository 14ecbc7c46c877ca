// Package storage provides JSON and CSV persistence for high-lakes snapshots.
//
// The storage package manages the files that are committed on every run: the nested lakes
// snapshot (high_lakes.json), its flattened forms (high_lakes_plants.json and
// high_lakes_plants.csv), the county IDs, and the open data download. The previous
// high_lakes.json doubles as the snapshot that new plants are detected against.
// The default storage location is ./data inside the repository.
package storage
