// Package backend defines the contract every metrics publishing sink
// must satisfy.
package backend

import (
	"context"
	"time"

	"github.com/metcod/metcod/internal/registry"
)

// Backend publishes one TimeFrame to an external system. Publish is
// invoked at most once per frame per backend, is side-effect only, and
// must handle its own errors internally - logging and swallowing them
// rather than returning an error that would abort sibling backends.
//
// Implementations are constructed fresh for each flush in the
// reference design (see internal/daemon), so Publish may also own
// teardown of whatever resource it opened during construction; callers
// do not call a separate Close.
type Backend interface {
	Publish(ctx context.Context, at time.Time, frame registry.TimeFrame)
}
