package constants

import "time"

// ISO8601MillisFormat renders UTC timestamps with millisecond precision and a Z suffix, e.g.
// 2024-05-01T09:30:00.000Z. Submission timestamps always use it.
const ISO8601MillisFormat = "2006-01-02T15:04:05.000Z07:00"

const (
	DefaultRateLimitRequests           = 100
	DefaultSubmissionRequestsPerMinute = 5
)

const DefaultRateLimitWindow = time.Minute

// Redis layout: one JSON string per submission plus a set of IDs.
const (
	SubmissionKeyPrefix = "submission:"
	SubmissionListKey   = "submissions:list"
)
