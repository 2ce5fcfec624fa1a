package measure

import (
	"context"
	"fmt"

	"github.com/IvanBrykalov/dimcache/imagedims"
)

// Mux routes asset sources to Assets and URI sources to Remote.
// A nil route fails with ErrUnsupportedSource.
type Mux struct {
	Assets imagedims.Measurer
	Remote imagedims.Measurer
}

// Measure implements imagedims.Measurer.
func (m Mux) Measure(ctx context.Context, src imagedims.Source) (imagedims.Dimensions, error) {
	route := m.Remote
	kind := "uri"
	if src.IsAsset() {
		route, kind = m.Assets, "asset"
	}
	if route == nil {
		return imagedims.Dimensions{}, fmt.Errorf("%w: no %s measurer", ErrUnsupportedSource, kind)
	}
	return route.Measure(ctx, src)
}

var _ imagedims.Measurer = Mux{}
