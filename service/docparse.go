package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/config"
	"github.com/acse-yz219/bananslides/model"
)

// DocparseService is the client for the external document-parse service. It
// implements the parse trigger and receives task results either through the
// checksum-verified callback or, when no callback is configured, by polling.
type DocparseService struct {
	config     *config.DocparseConfig
	httpClient *http.Client
	catalog    *MaterialCatalog
	storage    *MinioService
	onStatus   func(model.Material)
}

// TaskRequest represents the request to create a parse task
type TaskRequest struct {
	URL      string `json:"url"`
	Callback string `json:"callback,omitempty"`
	Seed     string `json:"seed,omitempty"`
	DataID   string `json:"data_id,omitempty"`
}

// TaskResponse represents the response from task creation
type TaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// TaskStatusResponse represents the task status query response
type TaskStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID   string `json:"task_id"`
		DataID   string `json:"data_id"`
		State    string `json:"state"` // pending, running, done, failed
		ErrorMsg string `json:"err_msg,omitempty"`
	} `json:"data"`
}

func NewDocparseService(cfg *config.DocparseConfig, catalog *MaterialCatalog, storage *MinioService) *DocparseService {
	return &DocparseService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		catalog: catalog,
		storage: storage,
	}
}

// SetStatusHandler registers the out-of-band status fan-out, called whenever
// a task result changes a material's parse status
func (s *DocparseService) SetStatusHandler(fn func(model.Material)) {
	s.onStatus = fn
}

// CreateTask creates a new parse task for a stored document
func (s *DocparseService) CreateTask(ctx context.Context, fileURL, dataID string) (*TaskResponse, error) {
	reqBody := TaskRequest{
		URL:    fileURL,
		DataID: dataID,
	}

	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/parse/task", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result TaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("docparse API error: %s", result.Message)
	}

	return &result, nil
}

// GetTaskStatus queries the status of a task
func (s *DocparseService) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/parse/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result TaskStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("docparse API error: %s", result.Message)
	}

	return &result, nil
}

// VerifyCallback verifies the callback checksum
func (s *DocparseService) VerifyCallback(checksum, content string, uid string) bool {
	// Checksum = SHA256(uid + seed + content)
	data := uid + s.config.Seed + content
	hash := sha256.Sum256([]byte(data))
	expected := hex.EncodeToString(hash[:])
	return checksum == expected
}

// Trigger asks the parse service to begin parsing a material. It returns the
// refreshed record when the service handed back a task id, or an empty result
// when the trigger was acknowledged without one; either way a later status
// update arrives out of band.
func (s *DocparseService) Trigger(ctx context.Context, materialID string) (*composer.TriggerResult, error) {
	material := s.catalog.Get(materialID)
	if material == nil {
		return nil, &composer.TriggerError{MaterialID: materialID, Err: fmt.Errorf("material not found")}
	}

	fileURL, err := s.storage.GetPresignedURL(ctx, material.ObjectName)
	if err != nil {
		return nil, &composer.TriggerError{MaterialID: materialID, Err: err}
	}

	resp, err := s.CreateTask(ctx, fileURL, materialID)
	if err != nil {
		return nil, &composer.TriggerError{MaterialID: materialID, Err: err}
	}

	taskID := resp.Data.TaskID
	if taskID == "" {
		// Acknowledged without a task id; the callback will carry the rest
		return &composer.TriggerResult{}, nil
	}

	s.catalog.SetTaskID(materialID, taskID)
	s.catalog.UpdateParseStatus(materialID, model.ParseRunning, "")

	if s.config.CallbackURL == "" {
		go s.pollTask(materialID, taskID)
	}

	updated := s.catalog.Get(materialID)
	return &composer.TriggerResult{Updated: updated}, nil
}

// pollTask polls for task completion when no callback is configured
func (s *DocparseService) pollTask(materialID, taskID string) {
	maxAttempts := 60 // 5 minutes with 5 second intervals
	for i := 0; i < maxAttempts; i++ {
		time.Sleep(5 * time.Second)

		status, err := s.GetTaskStatus(context.Background(), taskID)
		if err != nil {
			slog.Warn("parse status poll failed", "material_id", materialID, "attempt", i+1, "error", err)
			continue
		}

		switch status.Data.State {
		case "done":
			s.publishStatus(materialID, model.ParseDone, "")
			return
		case "failed":
			s.publishStatus(materialID, model.ParseFailed, status.Data.ErrorMsg)
			return
		}
	}

	slog.Warn("parse task polling timeout", "material_id", materialID, "task_id", taskID)
	s.publishStatus(materialID, model.ParseFailed, "parse task polling timeout")
}

// publishStatus updates the catalog and fans the change out to live sessions
func (s *DocparseService) publishStatus(materialID, status, errMsg string) {
	s.catalog.UpdateParseStatus(materialID, status, errMsg)
	if s.onStatus != nil {
		if m := s.catalog.Get(materialID); m != nil {
			s.onStatus(*m)
		}
	}
}
