package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
)

// Prediction is one classifier verdict from the /predict endpoint.
type Prediction struct {
	Category   string  `json:"category"`
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Client talks to the external vision-language classification service. It
// is a client of that contract, not its implementation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a classifier client. The timeout covers the whole
// request; a timeout is the normal failure path, never fatal to a batch.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health checks service availability and reports the loaded model.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %v: %w", err, catalog.ErrClassification)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned %d: %w", resp.StatusCode, catalog.ErrClassification)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("malformed health response: %v: %w", err, catalog.ErrClassification)
	}
	return &status, nil
}

// Predict submits an image and returns the service's own ordered verdicts.
func (c *Client) Predict(ctx context.Context, image []byte) ([]Prediction, error) {
	body, contentType, err := multipartImage(image, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/predict", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var predictions []Prediction
	if err := json.NewDecoder(resp.Body).Decode(&predictions); err != nil {
		return nil, fmt.Errorf("malformed predict response: %v: %w", err, catalog.ErrClassification)
	}
	return predictions, nil
}

// Similarity submits an image together with a list of texts and returns one
// similarity score per text, aligned to the input ordering.
func (c *Client) Similarity(ctx context.Context, image []byte, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty text list: %w", catalog.ErrValidation)
	}

	textJSON, err := json.Marshal(map[string]interface{}{"text": texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode texts: %w", err)
	}

	body, contentType, err := multipartImage(image, map[string]string{"text": string(textJSON)})
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/similarity", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Similarity json.RawMessage `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed similarity response: %v: %w", err, catalog.ErrClassification)
	}

	scores, err := decodeScores(payload.Similarity)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(texts) {
		return nil, fmt.Errorf("similarity count %d does not match %d texts: %w",
			len(scores), len(texts), catalog.ErrClassification)
	}
	return scores, nil
}

// decodeScores accepts both the list form and the single-score form the
// service answers with for one-element requests.
func decodeScores(raw json.RawMessage) ([]float64, error) {
	var scores []float64
	if err := json.Unmarshal(raw, &scores); err == nil {
		return scores, nil
	}

	var single float64
	if err := json.Unmarshal(raw, &single); err == nil {
		return []float64{single}, nil
	}

	return nil, fmt.Errorf("malformed similarity scores: %w", catalog.ErrClassification)
}

func (c *Client) post(ctx context.Context, path string, body *bytes.Buffer, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, catalog.ErrClassification)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %d (%s): %w", path, resp.StatusCode,
			bytes.TrimSpace(msg), catalog.ErrClassification)
	}
	return resp, nil
}

// multipartImage builds a multipart body with the image file and optional
// extra form fields.
func multipartImage(image []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
