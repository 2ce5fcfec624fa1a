package measure

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/IvanBrykalov/dimcache/imagedims"
)

// Assets measures bundled images registered by numeric id.
// Paths are resolved inside FS. Safe for concurrent use.
type Assets struct {
	FS fs.FS

	mu    sync.RWMutex
	paths map[int]string
}

// NewAssets returns an empty registry rooted at fsys.
func NewAssets(fsys fs.FS) *Assets {
	return &Assets{FS: fsys, paths: make(map[int]string)}
}

// Register maps id to path within FS, replacing any earlier mapping.
func (a *Assets) Register(id int, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths[id] = path
}

// Measure implements imagedims.Measurer.
func (a *Assets) Measure(ctx context.Context, src imagedims.Source) (imagedims.Dimensions, error) {
	if !src.IsAsset() {
		return imagedims.Dimensions{}, fmt.Errorf("%w: %q is not an asset", ErrUnsupportedSource, src.URI())
	}
	if err := ctx.Err(); err != nil {
		return imagedims.Dimensions{}, err
	}

	a.mu.RLock()
	path, ok := a.paths[src.AssetID()]
	a.mu.RUnlock()
	if !ok {
		return imagedims.Dimensions{}, fmt.Errorf("%w: %d", ErrUnknownAsset, src.AssetID())
	}

	f, err := a.FS.Open(path)
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("asset %d: %w", src.AssetID(), err)
	}
	defer f.Close()

	d, err := decodeConfig(f)
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("asset %d (%s): %w", src.AssetID(), path, err)
	}
	return d, nil
}

var _ imagedims.Measurer = (*Assets)(nil)
