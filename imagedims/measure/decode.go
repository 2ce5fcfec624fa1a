// Package measure provides imagedims.Measurer implementations for bundled
// assets and remote URIs.
package measure

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"

	"github.com/IvanBrykalov/dimcache/imagedims"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

var (
	// ErrUnknownAsset is returned for an asset id that was never registered.
	ErrUnknownAsset = errors.New("measure: unknown asset")

	// ErrUnsupportedSource is returned when a measurer gets the wrong kind
	// of Source (a URI for assets, an asset for HTTP).
	ErrUnsupportedSource = errors.New("measure: unsupported source")
)

// decodeConfig reads just enough of r to learn the image size.
func decodeConfig(r io.Reader) (imagedims.Dimensions, error) {
	cfg, format, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("decode header: %w", err)
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return imagedims.Dimensions{}, fmt.Errorf("decode header: %s reports negative size", format)
	}
	return imagedims.Dimensions{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}
