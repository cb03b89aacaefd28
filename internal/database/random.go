package database

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	randomValueLength  = 10
	randomValueCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// randomValue returns a cryptographically random alphanumeric string.
func randomValue(length int) (string, error) {
	max := big.NewInt(int64(len(randomValueCharset)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random value: %w", err)
		}
		out[i] = randomValueCharset[idx.Int64()]
	}
	return string(out), nil
}
