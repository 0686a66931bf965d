package filetype

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
)

var (
	ErrNotAnImage     = errors.New("invalid image file format")
	ErrBlockedContent = errors.New("potentially malicious file detected")
)

// Magic numbers that never begin a real photo.
var blockedSignatures = [][]byte{
	{0x4D, 0x5A},             // PE executable (MZ)
	{0x7F, 0x45, 0x4C, 0x46}, // ELF executable
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O 32-bit
	{0xFE, 0xED, 0xFA, 0xCF}, // Mach-O 64-bit
	{0xCA, 0xFE, 0xBA, 0xBE}, // Java class file
	{0x50, 0x4B, 0x03, 0x04}, // ZIP archive
}

var scriptPrefixes = []string{
	"#!",
	"<script",
	"<?php",
}

// CheckContent inspects the leading bytes of an upload and rejects anything
// that looks like an executable, an archive, or a script rather than an
// image. It is a denylist, not proof the bytes decode as an image.
func CheckContent(data []byte) error {
	if len(data) < 10 {
		return ErrNotAnImage
	}

	for _, sig := range blockedSignatures {
		if bytes.HasPrefix(data, sig) {
			return ErrBlockedContent
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	if scanner.Scan() {
		firstLine := strings.ToLower(strings.TrimSpace(scanner.Text()))
		for _, prefix := range scriptPrefixes {
			if strings.HasPrefix(firstLine, prefix) {
				return ErrBlockedContent
			}
		}
	}
	return nil
}
