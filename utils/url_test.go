package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExtractCookieDomain server_domain 的几种常见写法
func TestExtractCookieDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"localhost:3000", "localhost"},
		{"https://img.example.com", "img.example.com"},
		{"http://img.example.com:8080/uploads", "img.example.com"},
		{"http://[::1]:3000", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCookieDomain(tt.input))
		})
	}
}

func TestBuildImageURL(t *testing.T) {
	assert.Equal(t, "/uploads/image-1700000000000-0123456789abcdef.png",
		BuildImageURL("image-1700000000000-0123456789abcdef.png"))
}
