// Package feed maintains the single LISTEN connection to Postgres and turns
// raw data_changes notifications into dispatched change events.
//
// The listener deliberately does not reconnect: a failed feed stays failed
// until process restart, which /health surfaces.
package feed
