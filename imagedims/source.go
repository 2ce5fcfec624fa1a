package imagedims

import (
	"maps"
	"strconv"
)

// Dimensions is the pixel size of an image.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether both sides are zero, which is what a failed
// measurement resolves to.
func (d Dimensions) IsZero() bool { return d.Width == 0 && d.Height == 0 }

// Source identifies an image: either a bundled asset by numeric id, or a
// remote URI with optional request headers. Build one with Asset or URI;
// the zero Source names nothing.
type Source struct {
	assetID int
	uri     string
	headers map[string]string
	asset   bool
}

// Asset returns a Source for a bundled asset.
func Asset(id int) Source { return Source{assetID: id, asset: true} }

// URI returns a Source for a remote image.
func URI(u string) Source { return Source{uri: u} }

// WithHeaders returns a copy of s that sends h when probing the URI.
func (s Source) WithHeaders(h map[string]string) Source {
	s.headers = maps.Clone(h)
	return s
}

// IsAsset reports whether s names a bundled asset.
func (s Source) IsAsset() bool { return s.asset }

// AssetID returns the asset id; meaningful only when IsAsset.
func (s Source) AssetID() int { return s.assetID }

// URI returns the remote location, or "" for an asset.
func (s Source) URI() string { return s.uri }

// Headers returns the request headers for a URI probe. Callers must not
// modify the map.
func (s Source) Headers() map[string]string { return s.headers }

// Key returns the cache key for s: the decimal asset id, or the URI.
// Headers are not part of the key. ok is false when s names nothing.
func Key(s Source) (key string, ok bool) {
	switch {
	case s.asset:
		return strconv.Itoa(s.assetID), true
	case s.uri != "":
		return s.uri, true
	default:
		return "", false
	}
}
