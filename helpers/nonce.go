package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// NonceLife is how long a nonce remains valid. A nonce is issued for the
// current half of this window and is accepted during that half and the next.
const NonceLife = 24 * time.Hour

// NonceLength is the number of hex chars of the HMAC kept in a nonce
const NonceLength = 12

func nonceTick(now time.Time) int64 {
	return now.Unix() / int64(NonceLife.Seconds()/2)
}

func nonceHash(secret string, tick int64, action string, userID int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(userID, 10)))

	return hex.EncodeToString(mac.Sum(nil))[:NonceLength]
}

// CreateNonce returns a token binding the action to the user for the current
// tick
func CreateNonce(secret string, action string, userID int64, now time.Time) string {
	return nonceHash(secret, nonceTick(now), action, userID)
}

// VerifyNonce returns 1 if the nonce was created in the current tick, 2 if it
// was created in the previous tick, and 0 if it is not valid
func VerifyNonce(
	secret string,
	nonce string,
	action string,
	userID int64,
	now time.Time,
) int {
	if nonce == "" || secret == "" {
		return 0
	}

	tick := nonceTick(now)

	if hmac.Equal([]byte(nonce), []byte(nonceHash(secret, tick, action, userID))) {
		return 1
	}

	if hmac.Equal([]byte(nonce), []byte(nonceHash(secret, tick-1, action, userID))) {
		return 2
	}

	return 0
}
