package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestAcquireDownloadsOnce(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte("clip-bytes"))
	}))
	defer srv.Close()

	a := NewAcquirer(t.TempDir())
	url := srv.URL + "/stock/ocean.mp4?token=abc"

	first, err := a.Acquire(context.Background(), url)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := a.Acquire(context.Background(), url)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if fetches != 1 {
		t.Errorf("fetches=%d, want 1", fetches)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	if string(data) != "clip-bytes" {
		t.Errorf("cached content=%q", data)
	}
}

func TestAcquireFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewAcquirer(t.TempDir())
	_, err := a.Acquire(context.Background(), srv.URL+"/denied.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"https://example.com/video/clip.mov?dl=1": ".mov",
		"https://example.com/video/clip":          ".mp4",
		"https://example.com/a.webm":              ".webm",
	}
	for in, want := range cases {
		if got := extensionFor(in); got != want {
			t.Errorf("extensionFor(%q)=%q, want %q", in, got, want)
		}
	}
}
