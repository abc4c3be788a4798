package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"biblioteca-server/internal/models"
	"biblioteca-server/internal/util"

	"go.uber.org/zap"
)

// DetectClient talks to the external inference service that turns shelf
// photos into (title, author, count) detections. Inference is opaque to
// this service; only the wire contract matters here.
type DetectClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDetectClient creates a new inference client
func NewDetectClient(baseURL string, timeout time.Duration) *DetectClient {
	return &DetectClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: util.GetLogger(),
	}
}

type predictResponse struct {
	Books []models.Detection `json:"books"`
}

// Detect submits one image to the inference service and returns its
// detections, in the order the service produced them.
func (c *DetectClient) Detect(ctx context.Context, filename string, image io.Reader) ([]models.Detection, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := c.baseURL + "/api/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	util.DetectionsReturnedTotal.Add(float64(len(out.Books)))
	c.logger.Info("Detections received",
		zap.String("filename", filename),
		zap.Int("count", len(out.Books)))

	if out.Books == nil {
		out.Books = []models.Detection{}
	}
	return out.Books, nil
}
