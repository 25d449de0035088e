// Package metrics reports pipeline timings to Sentry as spans.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics records spans on the transaction in the context. When Sentry
// has not been initialised the spans are dropped by the SDK.
type SentryMetrics struct {
	enabled bool
}

func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{enabled: enabled}
}

// Enabled reports whether spans are recorded. A nil SentryMetrics is disabled.
func (m *SentryMetrics) Enabled() bool {
	return m != nil && m.enabled
}

// StartTransaction starts the transaction the other spans attach to. The
// returned function finishes it.
func (m *SentryMetrics) StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	if !m.Enabled() {
		return ctx, func() {}
	}
	tx := sentry.StartTransaction(ctx, name)
	return tx.Context(), tx.Finish
}

func status(err error) sentry.SpanStatus {
	if err != nil {
		return sentry.SpanStatusInternalError
	}
	return sentry.SpanStatusOK
}

// RecordParse records parsing a music string or grammar of the given size.
func (m *SentryMetrics) RecordParse(ctx context.Context, duration time.Duration, inputBytes, productions int, err error) {
	if !m.Enabled() {
		return
	}
	span := sentry.StartSpan(ctx, "turtles.parse")
	defer span.Finish()

	span.SetTag("grammar", fmt.Sprintf("%t", productions > 0))
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("input_bytes", inputBytes)
	span.SetData("productions", productions)
	span.Status = status(err)
	span.Description = fmt.Sprintf("Parse: %d bytes", inputBytes)
}

// RecordCompose records composing a music string into tracks.
func (m *SentryMetrics) RecordCompose(ctx context.Context, duration time.Duration, tracks, events int, err error) {
	if !m.Enabled() {
		return
	}
	span := sentry.StartSpan(ctx, "turtles.compose")
	defer span.Finish()

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("tracks", tracks)
	span.SetData("events", events)
	span.Status = status(err)
	span.Description = fmt.Sprintf("Compose: %d events", events)
}

// RecordPlayback records one playback run.
func (m *SentryMetrics) RecordPlayback(ctx context.Context, duration time.Duration, player string, looped bool, err error) {
	if !m.Enabled() {
		return
	}
	span := sentry.StartSpan(ctx, "turtles.playback")
	defer span.Finish()

	span.SetTag("player", player)
	span.SetTag("looped", fmt.Sprintf("%t", looped))
	span.SetData("duration_ms", duration.Milliseconds())
	span.Status = status(err)
	span.Description = fmt.Sprintf("Playback: %s", player)

	if err != nil {
		sentry.CaptureException(err)
	}
}
