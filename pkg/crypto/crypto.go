package crypto

import (
	"crypto/hmac"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

func HMAC(hashFunc func() hash.Hash, data []byte, secret []byte) string {
	h := hmac.New(hashFunc, secret)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SeedInt64 folds a hex digest (e.g. the output of HMAC) into an int64 seed
// usable with math/rand. The digest must be at least 8 bytes long.
func SeedInt64(digest string) (int64, error) {
	b, err := hex.DecodeString(digest)
	if err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(b[:8])), nil
}
