package log

import (
	"context"
	"log/slog"
)

// Event names emitted by the contact intake. They are stable so dashboards can match on them.
const (
	EventSubmissionAccepted = "contact_submission_accepted"
	EventSubmissionRejected = "contact_submission_rejected"
	EventSubmissionFailed   = "contact_submission_failed"
	EventStorageFallback    = "storage_fallback_used"
)

// Event emits one diagnostic record with an "event" attribute. Level is chosen by the caller.
func (l *Logger) Event(ctx context.Context, level slog.Level, event string, args ...any) {
	attrs := append([]any{"event", event}, args...)
	l.Logger.Log(ctx, level, event, attrs...)
}
