package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProfileName(t *testing.T) {
	valid := []string{"default", "work", "Work-2", "client.acme", "a_b", "9lives"}
	for _, name := range valid {
		assert.NoError(t, ValidateProfileName(name), name)
	}

	invalid := []string{"", ".hidden", "../etc", "a/b", `a\b`, "has space", "-dash", strings.Repeat("x", 129)}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateProfileName(name), ErrInvalidProfileName, name)
	}
}

func TestValidateKeyName(t *testing.T) {
	valid := []string{"OPENAI_API_KEY", "a", "lower.case-key", "with inner space"}
	for _, name := range valid {
		assert.NoError(t, ValidateKeyName(name), name)
	}

	invalid := []string{"", "A=B", "#COMMENT", "LINE\nBREAK", " PADDED", "TAB\tKEY", strings.Repeat("K", MaxKeyNameLength+1)}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateKeyName(name), ErrInvalidKeyName, name)
	}
}
