package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mime     string
		extended bool
		want     bool
	}{
		{"jpeg by mime", "photo.jpg", "image/jpeg", false, true},
		{"png by mime", "x", "image/png", false, true},
		{"empty mime, extension fallback", "photo.jpg", "", false, true},
		{"generic mime, extension fallback", "photo.PNG", "application/octet-stream", false, true},
		{"heic rejected on base list", "img.heic", "", false, false},
		{"heic accepted on extended list", "img.heic", "", true, true},
		{"heic mime accepted on extended list", "x", "image/heic", true, true},
		{"tiff alt extension", "scan.tif", "", true, true},
		{"text file", "notes.txt", "text/plain", true, false},
		{"no extension, no mime", "photo", "", true, false},
		{"pdf mime with jpg extension", "fake.jpg", "application/pdf", false, true},
		{"uppercase extension", "IMG_0001.JPEG", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.fileName, tt.mime, tt.extended))
		})
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mime     string
		want     string
	}{
		{"declared wins", "photo.png", "image/webp", "image/webp"},
		{"empty falls back to extension", "photo.png", "", "image/png"},
		{"generic falls back to extension", "img.HEIC", "application/octet-stream", "image/heic"},
		{"tif maps to tiff", "scan.tif", "", "image/tiff"},
		{"unknown extension", "blob.bin", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentType(tt.fileName, tt.mime))
		})
	}
}

func TestIsHEIC(t *testing.T) {
	assert.True(t, IsHEIC("img.heic", ""))
	assert.True(t, IsHEIC("img.HEIF", ""))
	assert.True(t, IsHEIC("whatever", "image/heic"))
	assert.False(t, IsHEIC("img.jpg", "image/jpeg"))
}

func TestCheckContent(t *testing.T) {
	jpegHeader := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("JFIF and more data")...)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"jpeg passes", jpegHeader, nil},
		{"too short", []byte{0xFF, 0xD8}, ErrNotAnImage},
		{"pe executable", append([]byte{0x4D, 0x5A}, make([]byte, 16)...), ErrBlockedContent},
		{"elf executable", append([]byte{0x7F, 0x45, 0x4C, 0x46}, make([]byte, 16)...), ErrBlockedContent},
		{"mach-o executable", append([]byte{0xFE, 0xED, 0xFA, 0xCF}, make([]byte, 16)...), ErrBlockedContent},
		{"java class", append([]byte{0xCA, 0xFE, 0xBA, 0xBE}, make([]byte, 16)...), ErrBlockedContent},
		{"zip archive", append([]byte{0x50, 0x4B, 0x03, 0x04}, make([]byte, 16)...), ErrBlockedContent},
		{"shebang script", []byte("#!/usr/bin/env python\n"), ErrBlockedContent},
		{"html script tag", []byte("  <SCRIPT>alert(1)</script>"), ErrBlockedContent},
		{"php tag", []byte("<?php system($_GET['c']); ?>"), ErrBlockedContent},
		{"plain text passes", []byte("just some harmless text"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckContent(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
