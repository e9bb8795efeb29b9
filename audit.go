package goSession

import (
	"io"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is a session lifecycle record. It never carries token values.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Manager's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// Audit event types.
const (
	AuditLoginSuccess   = internalaudit.EventLoginSuccess
	AuditLoginFailure   = internalaudit.EventLoginFailure
	AuditRefreshSuccess = internalaudit.EventRefreshSuccess
	AuditRefreshFailure = internalaudit.EventRefreshFailure
	AuditLogout         = internalaudit.EventLogout
	AuditForcedLogout   = internalaudit.EventForcedLogout
	AuditHydrate        = internalaudit.EventHydrate
	AuditBootstrap      = internalaudit.EventBootstrap
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
