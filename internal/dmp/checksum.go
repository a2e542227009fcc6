package dmp

import (
	"crypto/md5"
	"encoding/hex"
)

// Checksum returns the lowercase hex MD5 digest of text, used to verify a
// shadow copy is still in sync before a patch is trusted against it.
func Checksum(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
