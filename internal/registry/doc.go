// Package registry tracks which code each connection is subscribed to.
//
// It is a pure in-memory index with no I/O. All mutation goes through a
// single mutex so the forward (code → connections) and reverse
// (connection → code) maps are never observed out of sync.
package registry
