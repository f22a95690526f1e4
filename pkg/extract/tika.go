package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrEmptyFile         = errors.New("file buffer is empty")
	ErrNoExtractableText = errors.New("no extractable text found in document")
)

// Extractor turns a raw file buffer into normalized plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// TikaExtractor talks to an Apache Tika server (PUT /tika).
type TikaExtractor struct {
	BaseURL string
	client  *http.Client
}

func NewTikaExtractor(baseURL string) Extractor {
	if baseURL == "" {
		baseURL = "http://localhost:9998"
	}
	return &TikaExtractor{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *TikaExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	endpoint := fmt.Sprintf("%s/tika", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika extraction error, code %d, body %s", resp.StatusCode, string(body))
	}

	text := Normalize(string(body))
	if text == "" {
		return "", ErrNoExtractableText
	}

	return text, nil
}
