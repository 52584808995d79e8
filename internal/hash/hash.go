// Package hash computes the content digest used as an image's identity.
package hash

import (
	"crypto/md5"
	"encoding/hex"
)

// Sum returns the lowercase hex digest of raw image bytes. It is the sole
// dedup key, so it must stay stable across restarts and platforms.
func Sum(data []byte) string {
	digest := md5.Sum(data)
	return hex.EncodeToString(digest[:])
}
