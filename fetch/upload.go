package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadPath is the endpoint that accepts multipart file uploads.
const UploadPath = "/upload"

// UploadResult is the server's answer to an upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Upload sends r as the "file" field of a multipart form and returns where
// the server stored it.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("fetch: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("fetch: read upload %q: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("fetch: close multipart writer: %w", err)
	}

	var out UploadResult
	err = c.send(ctx, request{
		method:      http.MethodPost,
		path:        UploadPath,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, &out)
	return out, err
}
