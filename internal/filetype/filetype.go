// Package filetype decides whether a file is an acceptable photo and what
// content type it should be stored under. The extension fallback exists
// because some platforms (mobile browsers with HEIC in particular) omit or
// misreport the MIME type.
package filetype

import (
	"path"
	"strings"
)

const genericMime = "application/octet-stream"

var baseMimes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var extendedMimes = map[string]bool{
	"image/heic": true,
	"image/heif": true,
	"image/tiff": true,
	"image/bmp":  true,
}

var extToMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
}

// Ext returns the lower-cased file extension including the dot.
func Ext(fileName string) string {
	return strings.ToLower(path.Ext(fileName))
}

// Allowed reports whether the declared MIME type, or failing that the file
// extension, is in the allow-list. The extended list adds HEIC/HEIF/TIFF/BMP.
func Allowed(fileName, declaredMime string, extended bool) bool {
	mime := strings.ToLower(strings.TrimSpace(declaredMime))
	if mime != "" && mime != genericMime {
		if baseMimes[mime] {
			return true
		}
		if extended && extendedMimes[mime] {
			return true
		}
	}

	fallback, ok := extToMime[Ext(fileName)]
	if !ok {
		return false
	}
	if baseMimes[fallback] {
		return true
	}
	return extended && extendedMimes[fallback]
}

// ContentType resolves the type an object is stored under: the declared type
// when it is specific, else the extension table, else octet-stream.
func ContentType(fileName, declaredMime string) string {
	mime := strings.ToLower(strings.TrimSpace(declaredMime))
	if mime != "" && mime != genericMime {
		return mime
	}
	if fallback, ok := extToMime[Ext(fileName)]; ok {
		return fallback
	}
	return genericMime
}

// IsHEIC reports whether the file looks like HEIC/HEIF by extension or type.
func IsHEIC(fileName, declaredMime string) bool {
	switch Ext(fileName) {
	case ".heic", ".heif":
		return true
	}
	mime := strings.ToLower(declaredMime)
	return mime == "image/heic" || mime == "image/heif"
}
