package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unibox-design/Alcient/internal/models"
)

func testStore(serverURL string) *Store {
	s := New(serverURL, "test-key", "videos")
	s.retryBase = time.Millisecond
	return s
}

func TestPutJobRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Method != "PUT" {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/jobs/abc.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := testStore(server.URL)
	job := &models.Job{ID: "abc", Status: models.JobStatusQueued}
	if err := s.PutJob(context.Background(), job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestGetJobNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := testStore(server.URL)
	_, err := s.GetJob(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetIndexMissingIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := testStore(server.URL)
	idx, err := s.GetIndex(context.Background())
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	if len(idx) != 0 {
		t.Errorf("expected empty index, got %v", idx)
	}
}

func TestGetJobRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"j1","projectId":"p1","status":"completed","progress":100}`))
	}))
	defer server.Close()

	s := testStore(server.URL)
	job, err := s.GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.ID != "j1" || job.ProjectID != "p1" || job.Status != models.JobStatusCompleted {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestUploadArtifactReturnsPublicURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "video/mp4" {
			t.Errorf("unexpected content type %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "p1_final.mp4")
	if err := os.WriteFile(local, []byte("mp4 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := testStore(server.URL)
	url, err := s.UploadArtifact(context.Background(), local, "p1")
	if err != nil {
		t.Fatalf("UploadArtifact: %v", err)
	}
	want := server.URL + "/storage/v1/object/public/videos/videos/p1/p1_final.mp4"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}
