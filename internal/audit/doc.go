// Package audit implements async dispatching of session lifecycle events.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured record with timestamp, type, user, session ID, metadata.
//
// The Manager decides which transitions become events; this package only buffers and
// delivers them. Events never carry token values.
package audit
