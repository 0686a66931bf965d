package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpratt/folio-api/internal/filetype"
	"github.com/mpratt/folio-api/internal/imgproc"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// IntakeLimits is the local validation policy applied before any network
// call. The server re-validates independently.
type IntakeLimits struct {
	// MaxBytes is the size ceiling. Default 20MB.
	MaxBytes int64
	// Extended adds HEIC/HEIF/TIFF/BMP to the allow-list.
	Extended bool
	// Process enables HEIC transcoding and downscaling before upload.
	Process bool
	// MaxEdge is the long-edge target when processing. Default 2048.
	MaxEdge int
}

func DefaultIntakeLimits() IntakeLimits {
	return IntakeLimits{MaxBytes: 20 << 20, Extended: true, Process: true}.withDefaults()
}

func (l IntakeLimits) withDefaults() IntakeLimits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = 20 << 20
	}
	if l.MaxEdge <= 0 {
		l.MaxEdge = 2048
	}
	return l
}

// Upload is a file that passed intake and is ready to send. Warnings carry
// non-fatal processing failures; the original bytes are kept in that case.
type Upload struct {
	FileName string
	Mime     string
	Data     []byte
	Warnings []string
}

// PrepareFile validates a local file against the intake policy and runs the
// optional pre-processing step. The size check uses the declared (stat) size
// and happens before the file is read.
func (c *Client) PrepareFile(path string) (*Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	if info.Size() > c.intake.MaxBytes {
		return nil, fmt.Errorf("%w (max %dMB)", ErrFileTooLarge, c.intake.MaxBytes/(1<<20))
	}
	// No declared MIME type for a local file; the extension fallback decides.
	if !filetype.Allowed(name, "", c.intake.Extended) {
		return nil, ErrUnsupportedType
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.prepare(name, data), nil
}

// Prepare runs intake on bytes already in memory, for callers that are not
// reading from disk.
func (c *Client) Prepare(name, declaredMime string, data []byte) (*Upload, error) {
	if int64(len(data)) > c.intake.MaxBytes {
		return nil, fmt.Errorf("%w (max %dMB)", ErrFileTooLarge, c.intake.MaxBytes/(1<<20))
	}
	if !filetype.Allowed(name, declaredMime, c.intake.Extended) {
		return nil, ErrUnsupportedType
	}
	return c.prepare(name, data), nil
}

func (c *Client) prepare(name string, data []byte) *Upload {
	up := &Upload{
		FileName: name,
		Mime:     filetype.ContentType(name, ""),
		Data:     data,
	}
	if !c.intake.Process {
		return up
	}

	proc := &imgproc.BimgProcessor{MaxEdge: c.intake.MaxEdge, Quality: 80}
	res, err := proc.Process(data, name, up.Mime)
	if err != nil {
		// Keep the original bytes, surface a warning, never block the upload.
		up.Warnings = append(up.Warnings, fmt.Sprintf("image processing failed, uploading original: %v", err))
		return up
	}

	up.FileName = res.FileName
	up.Mime = res.Mime
	up.Data = res.Data
	return up
}
