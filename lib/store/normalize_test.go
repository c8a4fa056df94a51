package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"http://example.com":                "http://example.com",
		"http://example.com/":               "http://example.com",
		"  HTTP://Example.COM/Path  ":       "http://example.com/Path",
		"example.com":                       "http://example.com",
		"https://example.com:443/a?b=c":     "https://example.com/a?b=c",
		"http://example.com:80":             "http://example.com",
		"http://example.com:8080/#frag":     "http://example.com:8080",
		"https://example.com/docs#intro":    "https://example.com/docs",
		"http://[::1]:8080/":                "http://[::1]:8080",
		"example.com:8080/status":           "http://example.com:8080/status",
		"example.com/r?u=https://x.example": "http://example.com/r?u=https://x.example",
		"HTTPS://example.com/r?u=ftp://x":   "https://example.com/r?u=ftp://x",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)

		again, err := Normalize(got)
		require.NoError(t, err)
		assert.Equal(t, got, again, "normalizing twice should be a no-op")
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "   ", "http://", "http://exa mple.com",
		"ftp://example.com", "file:///etc/passwd", "javascript://example.com",
	} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidURL, in)
	}
}
