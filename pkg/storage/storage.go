package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tarely-backend/pkg/config"
)

// ObjectStore is the blob storage boundary used for attachments and avatars.
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
}

// SupabaseStore stores objects through the Supabase storage REST API.
type SupabaseStore struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStore(cfg *config.Config) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    strings.TrimSuffix(cfg.StorageURL, "/"),
		apiKey:     cfg.StorageKey,
		bucket:     cfg.StorageBucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SupabaseStore) Upload(ctx context.Context, path, contentType string, data []byte) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *SupabaseStore) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, s.bucket, path)
	payload, err := json.Marshal(map[string]int{"expiresIn": int(expiresIn.Seconds())})
	if err != nil {
		return "", fmt.Errorf("failed to encode sign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode sign response: %w", err)
	}
	return s.baseURL + "/storage/v1" + parsed.SignedURL, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MemoryStore keeps objects in memory for local development and tests.
type MemoryStore struct {
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(ctx context.Context, path, contentType string, data []byte) error {
	m.objects[path] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	if _, ok := m.objects[path]; !ok {
		return "", fmt.Errorf("object not found: %s", path)
	}
	return "memory://" + path, nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	delete(m.objects, path)
	return nil
}
