package random

import (
	"crypto/rand"
	"math/big"

	"github.com/myrjola/nearmiss/internal/errors"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyz")

// Letters returns n random lowercase ASCII letters. The result is safe to use in file names.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	alphabetSize := big.NewInt(int64(len(allowedLetters)))
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", errors.Wrap(err, "read random index")
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}
