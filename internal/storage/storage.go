package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unibox-design/Alcient/internal/models"
)

const (
	uploadTimeout   = 180 * time.Second
	downloadTimeout = 120 * time.Second

	maxRetries    = 4
	maxRetryDelay = 30 * time.Second

	jobPrefix   = "jobs"
	videoPrefix = "videos"
	indexKey    = "renders/project_index.json"
)

// ErrNotFound is returned when the store has no object at a key.
var ErrNotFound = errors.New("object not found")

// Store is the optional remote durable store for job records, the project
// index, and finished videos. When unconfigured the orchestrator degrades to
// local-filesystem-only persistence; a nil *Store is never constructed, the
// caller just passes a nil interface instead.
type Store struct {
	url        string
	serviceKey string
	bucket     string
	client     *http.Client
	retryBase  time.Duration
}

func New(url, serviceKey, bucket string) *Store {
	return &Store{
		url:        strings.TrimRight(url, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		retryBase:  1 * time.Second,
		client: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// PutJob mirrors a job record to the store.
func (s *Store) PutJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.put(ctx, fmt.Sprintf("%s/%s.json", jobPrefix, job.ID), data, "application/json")
}

// GetJob fetches a job record, returning ErrNotFound when absent.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := s.get(ctx, fmt.Sprintf("%s/%s.json", jobPrefix, jobID))
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse remote job %s: %w", jobID, err)
	}
	return &job, nil
}

// PutIndex mirrors the project→job index.
func (s *Store) PutIndex(ctx context.Context, mapping map[string]string) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal project index: %w", err)
	}
	return s.put(ctx, indexKey, data, "application/json")
}

// GetIndex fetches the project→job index. A missing index is an empty map,
// not an error.
func (s *Store) GetIndex(ctx context.Context) (map[string]string, error) {
	data, err := s.get(ctx, indexKey)
	if errors.Is(err, ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return map[string]string{}, nil
	}
	return mapping, nil
}

// UploadArtifact uploads a finished video and returns its public URL.
func (s *Store) UploadArtifact(ctx context.Context, localPath, projectID string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", localPath, err)
	}
	key := fmt.Sprintf("%s/%s/%s", videoPrefix, projectID, filepath.Base(localPath))
	if err := s.put(ctx, key, data, "video/mp4"); err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.bucket, key)
}

func (s *Store) publicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.bucket, key)
}

// put writes an object with retries and exponential backoff.
func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	url := s.objectURL(key)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay(attempt)
			log.Printf("[Store] Put retry %d/%d for %s (waiting %v)...", attempt, maxRetries, key, delay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("put cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		putCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
		req, err := http.NewRequestWithContext(putCtx, "PUT", url, bytes.NewReader(data))
		if err != nil {
			cancel()
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "true")

		resp, err := s.client.Do(req)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to put %s: %w", key, err)
			if isRetryableError(err) {
				continue
			}
			return lastErr
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return nil
		}

		lastErr = fmt.Errorf("put %s failed with status %d: %s", key, resp.StatusCode, truncate(string(body), 200))
		if isRetryableStatus(resp.StatusCode) {
			continue
		}
		return lastErr
	}

	return fmt.Errorf("put %s failed after %d attempts: %w", key, maxRetries+1, lastErr)
}

// get reads an object with retries. 404 maps to ErrNotFound without retrying.
func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	url := s.objectURL(key)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay(attempt)
			log.Printf("[Store] Get retry %d/%d for %s (waiting %v)...", attempt, maxRetries, key, delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("get cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		getCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
		req, err := http.NewRequestWithContext(getCtx, "GET", url, nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)

		resp, err := s.client.Do(req)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to get %s: %w", key, err)
			if isRetryableError(err) {
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusOK {
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			cancel()
			if err != nil {
				lastErr = fmt.Errorf("failed to read body for %s: %w", key, err)
				continue
			}
			return data, nil
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		lastErr = fmt.Errorf("get %s failed with status %d: %s", key, resp.StatusCode, truncate(string(body), 200))
		if isRetryableStatus(resp.StatusCode) {
			continue
		}
		return nil, lastErr
	}

	return nil, fmt.Errorf("get %s failed after %d attempts: %w", key, maxRetries+1, lastErr)
}

// retryDelay calculates exponential backoff with jitter: base * 2^attempt
// plus 0-25% random jitter to avoid thundering herd.
func (s *Store) retryDelay(attempt int) time.Duration {
	delay := float64(s.retryBase) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxRetryDelay) {
		delay = float64(maxRetryDelay)
	}
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "broken pipe")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
