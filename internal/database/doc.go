// Package database provides the pooled Postgres access used by the HTTP
// facade and the join-time history reads, plus the schema and NOTIFY
// trigger the change feed depends on.
package database
