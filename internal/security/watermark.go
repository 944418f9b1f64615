package security

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	WatermarkLength = 8
	// I, O, 0 and 1 are left out so codes survive being read off a screen.
	watermarkAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewWatermarkCode returns a random code for forensic tracing. Codes are not
// guaranteed unique; collisions are tolerated by callers.
func NewWatermarkCode() (string, error) {
	buf := make([]byte, WatermarkLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	// len(watermarkAlphabet) divides 256, so the modulo keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = watermarkAlphabet[int(b)%len(watermarkAlphabet)]
	}
	return string(buf), nil
}

func IsWatermarkCode(code string) bool {
	if len(code) != WatermarkLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(watermarkAlphabet, c) {
			return false
		}
	}
	return true
}
