package services

import (
	"io"
	"strings"
	"unicode"
)

const (
	codeAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSuffixLen = 6
	// largest multiple of len(codeAlphabet) below 256
	codeByteLimit = 252
)

// GenerateReferralCode builds "XXYY-ZZZZZZ" from the first two letters of
// each name and six random base-36 characters read from r.
func GenerateReferralCode(firstName, lastName string, r io.Reader) (string, error) {
	suffix := make([]byte, 0, codeSuffixLen)
	buf := make([]byte, codeSuffixLen)
	for len(suffix) < codeSuffixLen {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= codeByteLimit {
				continue
			}
			suffix = append(suffix, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(suffix) == codeSuffixLen {
				break
			}
		}
	}
	return namePrefix(firstName) + namePrefix(lastName) + "-" + string(suffix), nil
}

// namePrefix returns two upper-case letters, padding with X.
func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 2 {
			break
		}
	}
	for b.Len() < 2 {
		b.WriteByte('X')
	}
	return b.String()
}
