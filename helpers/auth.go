package helpers

import (
	"crypto/rand"
	"fmt"
)

// NoAuthMessage is the unauthorised error message
const NoAuthMessage = "You do not have permission to do that"

// AllowedChars is the range of chars that can appear in a random string
var AllowedChars = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// RandString returns a random string for a required length
func RandString(length int) (string, error) {
	bytes := make([]byte, length)
	randomByte := make([]byte, 1)

	for i := 0; i < length; {
		numBytes, err := rand.Read(randomByte)
		if err != nil {
			return string(bytes), err
		}
		if numBytes != 1 {
			return string(bytes), fmt.Errorf("failed to read a random byte")
		}

		// Reject values outside the alphabet rather than taking a modulus so
		// that every char is equally likely
		if int(randomByte[0]) >= len(AllowedChars)*(256/len(AllowedChars)) {
			continue
		}

		bytes[i] = AllowedChars[int(randomByte[0])%len(AllowedChars)]
		i++
	}

	return string(bytes), nil
}
