package devtools

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
)

// NewSessionID returns a lexicographically sortable id for a single
// codevec-cli invocation, attached to the log lines of a build run. Unlike
// the run-scoped uuid artifact coordinates stamped onto individual chunks,
// a session id orders by wall-clock time, which is what a log aggregator
// sorts on.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
