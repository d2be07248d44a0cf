package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashKey deterministically maps (album, disc, track) to the opaque
// content key used to name cache files: the lowercase hex SHA-256 of
// "album/DD/TT". Two inputs that hash to the same key are treated as the
// same object — a cryptographic hash is assumed collision-free.
func HashKey(albumID string, discID, trackID uint8) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%02d/%02d", albumID, discID, trackID)))
	return hex.EncodeToString(sum[:])
}
