package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// opaqueTokenBytes yields 64 hex characters.
const opaqueTokenBytes = 32

// HexTokenGenerator produces random hex tokens for confirmation and reset links.
type HexTokenGenerator struct{}

// NewHexTokenGenerator returns a HexTokenGenerator.
func NewHexTokenGenerator() HexTokenGenerator {
	return HexTokenGenerator{}
}

// Generate returns a fresh token read from crypto/rand.
func (HexTokenGenerator) Generate() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
