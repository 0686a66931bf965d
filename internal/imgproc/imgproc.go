// Package imgproc wraps the libvips pipeline used to normalize uploads:
// HEIC/HEIF transcodes to JPEG, anything bigger than the target long edge is
// scaled down, and pixel dimensions are probed for the metadata row.
package imgproc

import (
	"strings"

	"github.com/h2non/bimg"

	"github.com/mpratt/folio-api/internal/filetype"
)

// Result is the processed file plus what was learned about it.
type Result struct {
	Data     []byte
	FileName string
	Mime     string
	Width    int
	Height   int
}

// Processor turns an accepted upload into the bytes that get stored. A
// failure must be treated as fall-back-to-original by callers, never as a
// reason to reject the upload.
type Processor interface {
	Process(data []byte, fileName, mime string) (*Result, error)
	Probe(data []byte) (width, height int, err error)
}

// BimgProcessor implements Processor with bimg/libvips.
type BimgProcessor struct {
	MaxEdge int
	Quality int
}

func NewProcessor() *BimgProcessor {
	return &BimgProcessor{MaxEdge: 2048, Quality: 80}
}

func (p *BimgProcessor) Process(data []byte, fileName, mime string) (*Result, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, err
	}

	opts := bimg.Options{Quality: p.Quality}

	if size.Width >= size.Height && size.Width > p.MaxEdge {
		opts.Width = p.MaxEdge
	} else if size.Height > size.Width && size.Height > p.MaxEdge {
		opts.Height = p.MaxEdge
	}

	outName := fileName
	outMime := filetype.ContentType(fileName, mime)
	if filetype.IsHEIC(fileName, mime) {
		opts.Type = bimg.JPEG
		outName = replaceExt(fileName, ".jpg")
		outMime = "image/jpeg"
	}

	out, err := img.Process(opts)
	if err != nil {
		return nil, err
	}

	finalSize, err := bimg.NewImage(out).Size()
	if err != nil {
		// The bytes are usable even if the probe fails.
		finalSize = bimg.ImageSize{}
	}

	return &Result{
		Data:     out,
		FileName: outName,
		Mime:     outMime,
		Width:    finalSize.Width,
		Height:   finalSize.Height,
	}, nil
}

// Probe reads pixel dimensions without transforming the image.
func (p *BimgProcessor) Probe(data []byte) (width, height int, err error) {
	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return 0, 0, err
	}
	return size.Width, size.Height, nil
}

func replaceExt(fileName, ext string) string {
	if i := strings.LastIndex(fileName, "."); i > 0 {
		return fileName[:i] + ext
	}
	return fileName + ext
}
