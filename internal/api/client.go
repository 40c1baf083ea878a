// Package api uploads export bundles to the report assembly service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/photokey/floorplan/internal/export"
)

// Client handles communication with the report service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Healthcheck checks if the report service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload sends a bundle as a multipart form: the bundle JSON as "bundle" and
// every image as "floor" or "item" files named by their id.
func (c *Client) Upload(ctx context.Context, projectID string, bundle export.Bundle) error {
	manifest, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	// Create multipart form
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	// Write form fields and files in goroutine
	errCh := make(chan error, 1)
	go func() {
		err := writeForm(writer, c.apiKey, projectID, manifest, bundle)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/reports/"+projectID+"/images", pr)
	if err != nil {
		pr.Close()
		<-errCh
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check goroutine error
	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

func writeForm(w *multipart.Writer, secret, projectID string, manifest []byte, bundle export.Bundle) error {
	_ = w.WriteField("secret", secret)
	_ = w.WriteField("project", projectID)

	part, err := w.CreateFormFile("bundle", "bundle.json")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(manifest); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	for field, units := range map[string]map[string]export.Unit{"floor": bundle.Floors, "item": bundle.Items} {
		keys := make([]string, 0, len(units))
		for k := range units {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if len(units[k].PNG) == 0 {
				continue
			}
			part, err := w.CreateFormFile(field, k+".png")
			if err != nil {
				return fmt.Errorf("failed to create form file: %w", err)
			}
			if _, err := part.Write(units[k].PNG); err != nil {
				return fmt.Errorf("failed to write %s %s: %w", field, k, err)
			}
		}
	}
	return nil
}
