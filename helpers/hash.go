package helpers

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
)

// MD5Sum returns the hex encoded MD5 of s, used for short lived dedupe keys
func MD5Sum(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex encoded SHA-1 of the bytes. Stored files are named by
// it so that a key never refers to two different contents.
func SHA1(b []byte) (string, error) {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}
