package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"github.com/mpratt/folio-api/models"
)

const maxCaptionLen = 500

// UploadPhoto sends a prepared file as a multipart POST. onProgress, when
// non-nil, receives 0-100 computed from bytes written against the body size.
// The upload is a single shot: no retry, no mid-flight cancellation beyond
// the context and the client timeout.
func (c *Client) UploadPhoto(ctx context.Context, up *Upload, caption string, onProgress func(int)) (*models.Photo, error) {
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return nil, fmt.Errorf("caption too long (max %d characters)", maxCaptionLen)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := createFilePart(mw, up.FileName, up.Mime)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var reader io.Reader = body
	if onProgress != nil {
		reader = &progressReader{r: body, total: int64(body.Len()), report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/photos/upload-v2", reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return nil, decodeAPIError(res)
	}

	var out struct {
		Photo *models.Photo `json:"photo"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Photo, nil
}

// createFilePart is CreateFormFile with an explicit content type for the
// file part instead of application/octet-stream.
func createFilePart(mw *multipart.Writer, fileName, mime string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", mime)
	return mw.CreatePart(h)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports whole-percent progress as the request body drains.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		pct := 100
		if p.total > 0 {
			pct = int(p.sent * 100 / p.total)
		}
		if pct > 100 {
			pct = 100
		}
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
