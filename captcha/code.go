package captcha

import (
	"math/rand/v2"
	"strings"
)

// CodeAlphabet leaves out characters that read alike once distorted
// (0/O, 1/I/l, 2/Z, 5/S).
const CodeAlphabet = "346789ABCDEFGHJKLMNPQRTUVWXYabcdefghijkmnpqrtuvwxy"

// RandomCode returns n characters drawn from CodeAlphabet. r may be nil.
func RandomCode(n int, r *rand.Rand) string {
	if n <= 0 {
		return ""
	}
	intn := rand.IntN
	if r != nil {
		intn = r.IntN
	}
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(CodeAlphabet[intn(len(CodeAlphabet))])
	}
	return sb.String()
}

// Match compares a submitted answer with the issued code, ignoring case and
// surrounding space.
func Match(code, answer string) bool {
	return code != "" && strings.EqualFold(code, strings.TrimSpace(answer))
}
