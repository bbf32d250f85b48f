package keystore

import (
	"crypto/sha256"
	"encoding/hex"
)

func hash256(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
