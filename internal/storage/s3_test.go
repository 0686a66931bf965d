package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("user-123", "My Photo.JPG")

	require.True(t, strings.HasPrefix(key, "user-123/"), "key must be namespaced by owner: %s", key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), "extension kept, lower-cased: %s", key)
	assert.NotContains(t, key, " ")

	// Random suffix keeps two keys for the same file apart.
	other := ObjectKey("user-123", "My Photo.JPG")
	assert.NotEqual(t, key, other)
}

func TestObjectKeyNoExtension(t *testing.T) {
	key := ObjectKey("u", "raw")
	assert.True(t, strings.HasPrefix(key, "u/"))
	assert.NotContains(t, key, ".")
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a%20b.jpg", CleanURL("https://cdn.example.com/a b.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", CleanURL("https://cdn.example.com/a.jpg"))
}

func TestPublicURLJoinsBase(t *testing.T) {
	s := NewS3Store(nil, "photos", "https://cdn.example.com/photos")
	assert.Equal(t, "https://cdn.example.com/photos/u/1-x.jpg", s.PublicURL("u/1-x.jpg"))
}
