package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"confluence-coach/internal/errors"
)

// UploadScreenshot sends a chart screenshot as multipart form data and
// returns the URL the pattern step references opaquely. Upload failures
// are retryable; they never mutate workflow state.
func (c *Client) UploadScreenshot(ctx context.Context, filename string, content []byte, pair string) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	if err := writer.WriteField("pair", pair); err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewUploadError(filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_screenshot", &body)
	if err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.NewUploadError(filename,
			errors.NewGatewayError("upload_screenshot", resp.StatusCode, strings.TrimSpace(string(snippet)), nil))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewUploadError(filename, err)
	}
	return &result, nil
}
