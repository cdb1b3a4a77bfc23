package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// PresignUpload obtains a short-lived upload URL and form fields from
// the API before the file goes to object storage directly.
func (c *Client) PresignUpload(ctx context.Context, contentType, extension string) (Presign, error) {
	q := url.Values{}
	q.Set("contentType", contentType)
	q.Set("extension", extension)

	var resp struct {
		Data Presign `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/uploads/workshop-image-post?"+q.Encode(), nil, &resp); err != nil {
		return Presign{}, err
	}
	return resp.Data, nil
}

// Upload performs the direct multipart POST against the presigned URL.
// The storage service expects the policy fields first, then the file.
func (c *Client) Upload(ctx context.Context, p Presign, filename string, file io.Reader) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for k, v := range p.Fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
