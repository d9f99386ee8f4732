package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const tokenBytes = 8

// NewToken returns 8 random bytes as unpadded URL-safe base64.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DownloadLink is the public streamer URL for token.
func DownloadLink(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/download/" + token
}
