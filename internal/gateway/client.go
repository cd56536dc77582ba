package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fastmal/roilabel/internal/models"
)

// ErrNotFound distinguishes a missing resource from other backend failures
var ErrNotFound = errors.New("not found")

// BackendError is an error reported by the backend in its JSON body,
// possibly alongside a 200 status.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the iviewer annotation endpoints of OMERO.web
type Client struct {
	BaseURL   string
	SessionID string
	CSRFToken string

	httpClient *http.Client
}

// NewClient creates a new gateway client
func NewClient(baseURL, sessionID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SessionID: sessionID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UserInfo fetches the logged in user
func (c *Client) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	var user models.UserInfo
	if err := c.do(ctx, http.MethodGet, "/iviewer/fastmal_user/", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	return &user, nil
}

// DatasetAnnotationData fetches the label definitions and annotation counts
// of a dataset for the current user
func (c *Client) DatasetAnnotationData(ctx context.Context, datasetID int64) (*models.DatasetAnnotationData, error) {
	path := fmt.Sprintf("/iviewer/fastmal_data/%d/", datasetID)

	var data models.DatasetAnnotationData
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch dataset annotation data: %w", err)
	}

	slog.Debug("Fetched dataset annotation data",
		"dataset_id", datasetID,
		"images", len(data.ImageIDs),
		"execution_time", data.ExecutionTime)

	return &data, nil
}

// SetCompletionTag adds or removes the completion tag of an image
func (c *Client) SetCompletionTag(ctx context.Context, imageID int64, state bool) error {
	path := fmt.Sprintf("/iviewer/fastmal_roi_complete_tag/%d/%s/", imageID, strconv.FormatBool(state))

	var ack struct {
		Msg string `json:"msg"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &ack); err != nil {
		return fmt.Errorf("failed to set completion tag: %w", err)
	}

	slog.Info("Completion tag updated", "image_id", imageID, "state", state, "msg", ack.Msg)
	return nil
}

// LinkLabelsToROIs attaches comma-joined secondary labels to persisted ROIs
func (c *Client) LinkLabelsToROIs(ctx context.Context, links []models.ROILabelLink) error {
	if len(links) == 0 {
		return nil
	}

	body := struct {
		Links []models.ROILabelLink `json:"links"`
	}{Links: links}

	var ack struct {
		Msg string `json:"msg"`
	}
	if err := c.do(ctx, http.MethodPost, "/iviewer/fastmal_roi_labels/", body, &ack); err != nil {
		return fmt.Errorf("failed to link labels to ROIs: %w", err)
	}

	slog.Info("Linked labels to ROIs", "links", len(links), "msg", ack.Msg)
	return nil
}

type rangeResponse struct {
	Value *float64 `json:"value"`
}

// ShapeRangeAnnotation reads the numeric value stored on a shape under key.
// A shape without one yields ErrNotFound.
func (c *Client) ShapeRangeAnnotation(ctx context.Context, shapeID int64, key string) (float64, error) {
	path := fmt.Sprintf("/iviewer/fastmal_shape_annotation/%d/%s/", shapeID, url.PathEscape(key))
	return c.rangeRequest(ctx, path)
}

// SetShapeRangeAnnotation stores value on a shape under key and returns the
// value the backend now holds
func (c *Client) SetShapeRangeAnnotation(ctx context.Context, shapeID int64, key string, value float64) (float64, error) {
	path := fmt.Sprintf("/iviewer/fastmal_shape_annotation/%d/%s/%s/",
		shapeID, url.PathEscape(key), strconv.FormatFloat(value, 'f', -1, 64))
	return c.rangeRequest(ctx, path)
}

func (c *Client) rangeRequest(ctx context.Context, path string) (float64, error) {
	var resp rangeResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to access shape annotation: %w", err)
	}
	if resp.Value == nil {
		return 0, fmt.Errorf("failed to access shape annotation: %w", ErrNotFound)
	}
	return *resp.Value, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.SessionID})
	}
	if c.CSRFToken != "" {
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.CSRFToken})
		req.Header.Set("X-CSRFToken", c.CSRFToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)

	if resp.StatusCode == http.StatusNotFound {
		msg := strings.TrimSpace(envelope.Error)
		if msg == "" {
			msg = path
		}
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	if envelope.Error != "" {
		return &BackendError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return &BackendError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
