package password

import (
	crypto_rand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	math_rand "math/rand"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Length is the amount of words in a password.
const Length = 3

var ErrMalformed = errors.New("malformed password")

// Generate returns a password of Length distinct words, prefixed with the
// rendezvous id of the sender, e.g. 7-aurora-beam-comet.
func Generate(id int) (string, error) {
	var seed [8]byte
	if _, err := crypto_rand.Read(seed[:]); err != nil {
		return "", fmt.Errorf("seeding password generator: %w", err)
	}
	rng := math_rand.New(math_rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))

	parts := make([]string, 0, Length+1)
	parts = append(parts, strconv.Itoa(id))
	for _, i := range rng.Perm(len(words))[:Length] {
		parts = append(parts, words[i])
	}
	return strings.Join(parts, "-"), nil
}

// Parse splits a password into its id and words.
func Parse(pass string) (int, []string, error) {
	parts := strings.Split(pass, "-")
	if len(parts) != Length+1 {
		return 0, nil, fmt.Errorf("%w: expected %d words", ErrMalformed, Length)
	}
	if strings.TrimLeft(parts[0], "0123456789") != "" || parts[0] == "" {
		return 0, nil, fmt.Errorf("%w: id %q is not a number", ErrMalformed, parts[0])
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, w := range parts[1:] {
		if w == "" || strings.TrimLeft(w, "abcdefghijklmnopqrstuvwxyz") != "" {
			return 0, nil, fmt.Errorf("%w: word %q", ErrMalformed, w)
		}
	}
	return id, parts[1:], nil
}

func IsValid(pass string) bool {
	_, _, err := Parse(pass)
	return err == nil
}

// Hashed returns the hex encoded sha256 hash of the password, which is
// what the rendezvous server pairs peers on.
func Hashed(pass string) string {
	h := sha256.Sum256([]byte(pass))
	return hex.EncodeToString(h[:])
}

// Words returns a copy of the list passwords are composed from.
func Words() []string {
	return slices.Clone(words)
}
