package utils

import (
	"math/rand"
)

const slugBytes = "abcdefghijklmnopqrstuvwxyz0123456789"
const (
	slugIdxBits = 6
	slugIdxMask = 1<<slugIdxBits - 1
	slugIdxMax  = 63 / slugIdxBits
)

// RandString returns an n-character lowercase alphanumeric id, used for
// public post slugs.
func RandString(n int) string {
	b := make([]byte, n)
	for i, cache, remain := n-1, rand.Int63(), slugIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = rand.Int63(), slugIdxMax
		}
		if idx := int(cache & slugIdxMask); idx < len(slugBytes) {
			b[i] = slugBytes[idx]
			i--
		}
		cache >>= slugIdxBits
		remain--
	}
	return string(b)
}
