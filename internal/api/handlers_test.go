package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/unibox-design/Alcient/internal/models"
)

type fakeRenderService struct {
	jobs map[string]*models.Job
}

func (f *fakeRenderService) Submit(payload models.ProjectPayload) (*models.Job, error) {
	if len(payload.Scenes) == 0 {
		return nil, fmt.Errorf("project has no scenes")
	}
	job := &models.Job{ID: "job-1", ProjectID: payload.ID, Status: models.JobStatusQueued}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeRenderService) Get(ctx context.Context, jobID string) (*models.Job, bool) {
	job, ok := f.jobs[jobID]
	return job, ok
}

func (f *fakeRenderService) GetByProject(ctx context.Context, projectID string) (*models.Job, bool) {
	for _, job := range f.jobs {
		if job.ProjectID == projectID {
			return job, true
		}
	}
	return nil, false
}

func (f *fakeRenderService) RequestStop(jobID string, target models.JobStatus) (*models.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	job.Status = target
	return job, nil
}

func newTestRouter() (*fakeRenderService, http.Handler) {
	render := &fakeRenderService{jobs: make(map[string]*models.Job)}
	h := NewHandler(render, nil, nil, nil)
	return render, NewRouter(h, RouterConfig{OutputDir: "testdata"})
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitRenderLifecycle(t *testing.T) {
	_, router := newTestRouter()

	body := `{"id":"p1","scenes":[{"order":1,"script":"hello"}]}`
	rec := doRequest(t, router, "POST", "/api/render", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var job models.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("bad submit response: %v", err)
	}
	if job.Status != models.JobStatusQueued {
		t.Errorf("job status = %s", job.Status)
	}

	rec = doRequest(t, router, "GET", "/api/render/"+job.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status lookup = %d", rec.Code)
	}

	rec = doRequest(t, router, "GET", "/api/render/project/p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("project lookup = %d", rec.Code)
	}

	rec = doRequest(t, router, "POST", "/api/render/"+job.ID+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel = %d", rec.Code)
	}
	var cancelled models.Job
	json.Unmarshal(rec.Body.Bytes(), &cancelled)
	if cancelled.Status != models.JobStatusCancelled {
		t.Errorf("cancel status = %s", cancelled.Status)
	}
}

func TestSubmitRenderRejectsEmptyProject(t *testing.T) {
	_, router := newTestRouter()
	rec := doRequest(t, router, "POST", "/api/render", `{"id":"p1","scenes":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRenderStatusNotFound(t *testing.T) {
	_, router := newTestRouter()
	rec := doRequest(t, router, "GET", "/api/render/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = doRequest(t, router, "POST", "/api/render/nope/pause", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("pause status = %d", rec.Code)
	}
}

func TestVoicesEndpoint(t *testing.T) {
	_, router := newTestRouter()
	rec := doRequest(t, router, "GET", "/api/voices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Voices  []struct{ Name string } `json:"voices"`
		Default string                  `json:"default"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Voices) == 0 || resp.Default == "" {
		t.Errorf("voices response incomplete: %+v", resp)
	}
}

func TestUnconfiguredEndpointsReport503(t *testing.T) {
	_, router := newTestRouter()
	for _, tc := range []struct{ method, path, body string }{
		{"POST", "/api/generate", `{"prompt":"volcanoes"}`},
		{"GET", "/api/media/search?keyword=ocean", ""},
		{"POST", "/api/project/save", `{"id":"p1"}`},
		{"GET", "/api/project/p1", ""},
	} {
		rec := doRequest(t, router, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503", tc.method, tc.path, rec.Code)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	render := &fakeRenderService{jobs: map[string]*models.Job{
		"job-1": {ID: "job-1", Status: models.JobStatusQueued},
	}}
	h := NewHandler(render, nil, nil, nil)
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret", OutputDir: "testdata"})

	rec := doRequest(t, router, "GET", "/api/render/job-1", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/render/job-1", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong key = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/render/job-1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer key = %d, want 200", rec.Code)
	}

	// Health stays public.
	rec = doRequest(t, router, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestMapAspectToOrientation(t *testing.T) {
	cases := map[string]string{"9:16": "portrait", "1:1": "square", "16:9": "landscape", "": "landscape"}
	for in, want := range cases {
		if got := mapAspectToOrientation(in); got != want {
			t.Errorf("mapAspectToOrientation(%q) = %q, want %q", in, got, want)
		}
	}
}
