package assets

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"hash"
	"io"
)

// Hash returns the lowercase hex MD5 digest of b.
func Hash(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // content addressing, not security
	return hex.EncodeToString(sum[:])
}

// NewHasher returns the streaming form of Hash for callers that write and
// hash in one pass.
func NewHasher() hash.Hash {
	return md5.New() //nolint:gosec // content addressing, not security
}

// HexSum renders a hasher's digest the way Hash does.
func HexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// HashReader streams r into an MD5 digest.
func HashReader(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return HexSum(h), nil
}

// HashedName returns base.hash.ext. ext may be given with or without its dot.
func HashedName(base, hash, ext string) string {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return base + "." + hash + ext
}
