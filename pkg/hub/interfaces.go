package hub

import (
	"context"

	"github.com/glorpus-work/modelfetch/pkg/model"
)

// Resolver turns a logical source reference into a concrete download URL and
// expected size by querying the remote hub with ordered fallback strategies.
type Resolver interface {
	// Resolve returns the download URL, selected file name and expected size
	// for the given source reference. The size is 0 when it could not be
	// discovered; the transfer may still learn it from response headers.
	Resolve(ctx context.Context, source string) (*model.Resolution, error)
}
