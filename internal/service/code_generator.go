package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

const (
	inviteCodeBytes = 16
	// maxCodeAttempts bounds retries after an invite code collision
	maxCodeAttempts = 5
)

// CodeGenerator produces invite codes for teams
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator generates 16-byte base64url codes (22 characters)
type RandomCodeGenerator struct{}

// NewRandomCodeGenerator creates a new RandomCodeGenerator
func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

// Generate returns a fresh random invite code
func (g *RandomCodeGenerator) Generate() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newID returns a new opaque entity identifier
func newID() string {
	return uuid.NewString()
}
