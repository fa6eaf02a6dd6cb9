// Package broadcast implements the WebSocket fan-out using the actor pattern.
//
// The Hub is a single goroutine consuming a command channel (no mutexes);
// it owns one clientWriter per connection, each with a bounded send queue so
// a slow client never blocks delivery to the others. The Dispatcher resolves
// a change event's subscribers through the registry and pushes one frame per
// member through the Hub.
package broadcast
