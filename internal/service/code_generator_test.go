package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeGenerator(t *testing.T) {
	gen := NewRandomCodeGenerator()
	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]{22}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, urlSafe, code)

		_, dup := seen[code]
		assert.False(t, dup, "code generated twice: %s", code)
		seen[code] = struct{}{}
	}
}
