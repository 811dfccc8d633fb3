// Package usage tracks meta-tool calls: how often each tool runs, how often
// the provider cache answered, how long calls take, and roughly how many
// response tokens cache hits saved.
//
// A Tracker keeps the most recent entries in memory and, when given a
// path, persists them as JSON after every record:
//
//	{"lastUpdated": "2026-01-02T15:04:05Z", "entries": [...]}
//
// Persistence is best effort. Read and write failures are logged and never
// surface to the tool call being recorded.
package usage
