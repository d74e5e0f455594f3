package fileshare

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	fileIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
	fileIDLength  = 4
	sessionIDLen  = 8 // random bytes, hex-encoded to 16 characters
)

// GenerateFileID produces a short public file identifier: 4 characters
// drawn from [a-z0-9]. The generator does not check for collisions,
// the metadata store rejects duplicates and the caller retries.
func GenerateFileID() (string, error) {
	result := make([]byte, fileIDLength)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(fileIDCharset))))
		if err != nil {
			return "", err
		}
		result[i] = fileIDCharset[n.Int64()]
	}

	return string(result), nil
}

// GenerateSessionID produces an opaque session token used for rate
// limiting and as the soft ownership credential on deletes.
func GenerateSessionID() (string, error) {
	buf := make([]byte, sessionIDLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
