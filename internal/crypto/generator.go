package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultCodePrefix = "PRD"
	DefaultCodeLength = 8
	MinCodeLength     = 4
	MaxCodeLength     = 32
)

var (
	ErrCodeLengthTooShort = errors.New("code length must be at least 4")
	ErrCodeLengthTooLong  = errors.New("code length must be at most 32")
)

// CodeOptions configures the internal product code generator.
type CodeOptions struct {
	Prefix string
	Length int
}

// DefaultCodeOptions returns PRD-XXXXXXXX style codes.
func DefaultCodeOptions() CodeOptions {
	return CodeOptions{Prefix: DefaultCodePrefix, Length: DefaultCodeLength}
}

// GenerateCode returns a random code like "PRD-7KQ2MX9A". The alphabet skips
// 0/O and 1/I so codes can be read back over the phone.
func GenerateCode(opts CodeOptions) (string, error) {
	if opts.Length < MinCodeLength {
		return "", ErrCodeLengthTooShort
	}
	if opts.Length > MaxCodeLength {
		return "", ErrCodeLengthTooLong
	}

	body := make([]byte, opts.Length)
	for i := range body {
		ch, err := randChar(codeAlphabet)
		if err != nil {
			return "", err
		}
		body[i] = ch
	}

	if opts.Prefix == "" {
		return string(body), nil
	}
	return opts.Prefix + "-" + string(body), nil
}

// randChar picks a random character from charset using crypto/rand.
func randChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}
