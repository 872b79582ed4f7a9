package encoding

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// crockfordAlphabet is Crockford's Base32 alphabet in lowercase.
const crockfordAlphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// EncodeCrockfordB32LC encodes input with Crockford's Base32 alphabet in lowercase,
// without padding. The alphabet avoids the easily confused letters i, l, o and u.
//
//nolint:gosec
func EncodeCrockfordB32LC(input []byte) string {
	var (
		out   strings.Builder
		bits  uint
		accum uint32
	)

	out.Grow((len(input)*8 + 4) / 5)

	for _, b := range input {
		accum = accum<<8 | uint32(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			out.WriteByte(crockfordAlphabet[(accum>>bits)&0x1F])
		}
	}

	if bits > 0 {
		out.WriteByte(crockfordAlphabet[(accum<<(5-bits))&0x1F])
	}

	return out.String()
}

// NormalizeCrockfordB32LC maps common transcription variants of an encoded ID back to
// the canonical form: spaces are dropped, letters lowercased, o becomes 0 and i/l become 1.
func NormalizeCrockfordB32LC(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return -1
		case 'O', 'o':
			return '0'
		case 'I', 'i', 'L', 'l':
			return '1'
		}

		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}

		return r
	}, input)
}

// RandomCrockfordB32LC returns n random characters of the lowercase Crockford alphabet.
func RandomCrockfordB32LC(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	for i, b := range buf {
		buf[i] = crockfordAlphabet[b&0x1F]
	}

	return string(buf), nil
}
