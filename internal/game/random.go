package game

import (
	"crypto/rand"
	"math/big"
)

// RandomSource draws uniform integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

// CryptoSource returns the production source backed by crypto/rand.
func CryptoSource() RandomSource {
	return cryptoSource{}
}

func (cryptoSource) IntN(n int) int {
	if n <= 0 {
		panic("game: IntN called with non-positive n")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("game: crypto/rand failed: " + err.Error())
	}
	return int(v.Int64())
}
