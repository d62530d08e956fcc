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

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/config"
)

// EngineService talks to the slide-generation engine. Creating a project
// publishes the new project id through the shared pointer so the rest of the
// pipeline can pick it up.
type EngineService struct {
	config     *config.EngineConfig
	httpClient *http.Client
	pointer    composer.ProjectPointer
}

type createProjectResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		ProjectID string `json:"project_id"`
	} `json:"data"`
}

func NewEngineService(cfg *config.EngineConfig, pointer composer.ProjectPointer) *EngineService {
	return &EngineService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pointer: pointer,
	}
}

// CreateProject creates a new project on the engine. The chosen template file
// rides along as multipart when present; otherwise the request is plain JSON.
func (s *EngineService) CreateProject(ctx context.Context, owner, mode, content string, template []byte) error {
	var req *http.Request
	var err error

	if len(template) > 0 {
		req, err = s.multipartRequest(ctx, mode, content, template)
	} else {
		req, err = s.jsonRequest(ctx, mode, content)
	}
	if err != nil {
		return &composer.CreationError{Message: err.Error()}
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &composer.CreationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &composer.CreationError{Message: err.Error()}
	}

	var result createProjectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return &composer.CreationError{Message: fmt.Sprintf("unexpected engine response: %s", string(body))}
	}

	if result.Code != 0 {
		return &composer.CreationError{Message: result.Message}
	}
	if result.Data.ProjectID == "" {
		return &composer.CreationError{Message: "engine returned no project id"}
	}

	s.pointer.Set(composer.CurrentProjectKey(owner), result.Data.ProjectID)
	return nil
}

func (s *EngineService) jsonRequest(ctx context.Context, mode, content string) (*http.Request, error) {
	payload := map[string]string{
		"mode":    mode,
		"content": content,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/projects", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *EngineService) multipartRequest(ctx context.Context, mode, content string, template []byte) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("mode", mode); err != nil {
		return nil, err
	}
	if err := writer.WriteField("content", content); err != nil {
		return nil, err
	}

	part, err := writer.CreateFormFile("template", "template.pptx")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(template); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/projects", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
