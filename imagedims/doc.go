// Package imagedims resolves the pixel dimensions of images and memoizes
// them in a bounded LRU cache.
//
// A Source is either a bundled asset (numeric id) or a remote URI. Its
// cache key is the decimal asset id or the URI string. Resolve consults
// the cache first and measures only on a miss; Watch does the same in the
// background and drops the result if the caller has gone away.
//
// Concrete measurers live in the measure subpackage.
package imagedims
