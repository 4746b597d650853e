// Package storage provides JSON-based persistence for status snapshots.
//
// A snapshot records the city statuses of the last successful fetch so the
// next run can report what changed. The default page is stored as
// snapshot.json; other page URLs get snapshot_<key>.json. The default
// storage location is the XDG data directory (~/.local/share/typhoon/).
package storage
