// Package recognize talks to the face verification service and resolves
// probe images to enrolled identities.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
)

const (
	defaultOracleURL   = "http://localhost:8000"
	defaultOracleModel = "vgg-face"
	defaultTimeout     = 30 * time.Second
)

// Client computes face embeddings and pairwise verification verdicts using
// the face service. Every call runs under a bounded timeout because the
// face model is the dominant latency source of a request.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewClient creates a face service client from configuration.
func NewClient(cfg *config.OracleConfig) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultOracleURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOracleModel
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// representResponse is the face service response for embedding extraction.
type representResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// verifyResponse is the face service response for pairwise verification.
type verifyResponse struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
	Model    string  `json:"model"`
}

// filePart describes one image attached to a multipart request.
type filePart struct {
	field string
	path  string
}

// postImages posts one or more image files as a multipart form and returns
// the response body. Oversized images are downscaled before upload.
func (c *Client) postImages(ctx context.Context, endpoint string, parts []filePart) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, p := range parts {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", p.path, err)
		}
		data, err = PrepareImage(data)
		if err != nil {
			return nil, fmt.Errorf("prepare image %s: %w", p.path, err)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, filepath.Base(p.path)))
		h.Set("Content-Type", detectMIMEType(data))
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("write image data: %w", err)
		}
	}

	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face service error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Represent extracts the face embedding from an image. Any failure,
// including the service not finding a face, means the image is unusable
// for enrollment or matching.
func (c *Client) Represent(ctx context.Context, imagePath string) ([]float32, error) {
	body, err := c.postImages(ctx, "/represent", []filePart{{field: "file", path: imagePath}})
	if err != nil {
		return nil, err
	}

	var rep representResponse
	if err := json.Unmarshal(body, &rep); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(rep.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	return rep.Embedding, nil
}

// Verify asks the face service whether two images show the same person.
func (c *Client) Verify(ctx context.Context, probePath, referencePath string) (bool, error) {
	body, err := c.postImages(ctx, "/verify", []filePart{
		{field: "file1", path: probePath},
		{field: "file2", path: referencePath},
	})
	if err != nil {
		return false, err
	}

	var ver verifyResponse
	if err := json.Unmarshal(body, &ver); err != nil {
		return false, fmt.Errorf("parse response: %w", err)
	}

	return ver.Verified, nil
}

// Model returns the model name requested from the face service.
func (c *Client) Model() string {
	return c.model
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
