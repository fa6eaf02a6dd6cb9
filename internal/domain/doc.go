// Package domain holds the core types shared across the broker: the stored
// event model, the parsed change notification, and the repository boundary.
package domain
