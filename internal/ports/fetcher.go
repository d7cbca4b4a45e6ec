package ports

import (
	"confetch/internal/types"
	"context"
)

// Fetcher retrieves the full current configuration of one namespace from the
// remote service. Implementations distinguish transport failures from parse
// failures via types.ErrTransport / types.ErrRemoteParse and never retry.
type Fetcher interface {
	Fetch(ctx context.Context, namespace string) (types.ConfigValue, error)
}
