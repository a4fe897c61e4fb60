// Package storage talks to the drive bridge, a small HTTP service that
// parks binary attachments in the unit's shared drive.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/siaptugas/siaptugas/internal/shared"
)

// StoredObject identifies one uploaded file. Handle is opaque and only
// meaningful to the bridge; URL is shareable.
type StoredObject struct {
	URL    string `json:"url"`
	Handle string `json:"file_id"`
}

// Client wraps interactions with the drive bridge API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the bridge is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: drive bridge tidak terjangkau: %v", shared.ErrExternal, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: drive bridge status %d", shared.ErrExternal, resp.StatusCode)
	}
	return nil
}

// Upload pushes file content to the bridge and returns its public URL
// and deletion handle.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte) (StoredObject, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return StoredObject{}, err
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return StoredObject{}, err
	}
	if contentType != "" {
		if err := writer.WriteField("content_type", contentType); err != nil {
			return StoredObject{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return StoredObject{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/files", c.baseURL), body)
	if err != nil {
		return StoredObject{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: unggah lampiran gagal: %v", shared.ErrExternal, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return StoredObject{}, fmt.Errorf("%w: unggah lampiran gagal dengan status %d", shared.ErrExternal, resp.StatusCode)
	}
	var obj StoredObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return StoredObject{}, fmt.Errorf("%w: balasan drive bridge tidak valid: %v", shared.ErrExternal, err)
	}
	if obj.Handle == "" {
		return StoredObject{}, fmt.Errorf("%w: drive bridge tidak mengembalikan file_id", shared.ErrExternal)
	}
	return obj, nil
}

// Delete removes a previously uploaded file by its handle. Deleting a
// handle the bridge no longer knows is not an error.
func (c *Client) Delete(ctx context.Context, handle string) error {
	target := fmt.Sprintf("%s/files/%s", c.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: hapus lampiran gagal: %v", shared.ErrExternal, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: hapus lampiran gagal dengan status %d", shared.ErrExternal, resp.StatusCode)
	}
	return nil
}
