package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

type errorResponse struct {
	Error json.RawMessage `json:"error"`
}

type errorDetails struct {
	Message string `json:"message"`
}

func (c *Client) postMultipartFile(ctx context.Context, url, field, fileName string, file []byte) (int, []byte, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	part, err := w.CreateFormFile(field, fileName)
	if err != nil {
		return 0, nil, err
	}

	if _, err = io.Copy(part, bytes.NewReader(file)); err != nil {
		return 0, nil, err
	}

	if err = w.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return 0, nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req)
}

// do sends the request and returns the status with the decoded body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, fmt.Errorf("read gzip body: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, data, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.credential != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.credential))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func decodeJSON(data []byte, target any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("empty body")
	}

	return json.Unmarshal(data, target)
}

// serviceMessage returns the message reported in an {"error":{"message":...}}
// or {"error":"..."} body, or fallback.
func serviceMessage(data []byte, fallback string) string {
	var response errorResponse
	if err := json.Unmarshal(data, &response); err != nil || len(response.Error) == 0 {
		return fallback
	}

	var details errorDetails
	if err := json.Unmarshal(response.Error, &details); err == nil {
		if msg := strings.TrimSpace(details.Message); msg != "" {
			return msg
		}
	}

	var message string
	if err := json.Unmarshal(response.Error, &message); err == nil {
		if msg := strings.TrimSpace(message); msg != "" {
			return msg
		}
	}

	return fallback
}
