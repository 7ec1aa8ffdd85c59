package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrnavastar/launchcore/internal/httpclient"
)

func newTestPool(t *testing.T) (*httpclient.Pool, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("hello world"))
		case "/notfound":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return httpclient.New(), srv
}

func TestExecutorRunFetchesAndVerifies(t *testing.T) {
	pool, srv := newTestPool(t)
	dest := filepath.Join(t.TempDir(), "file.jar")

	e := NewExecutor(pool, 4, nil)
	task := FetchTask{
		URL:          srv.URL + "/ok",
		Destination:  dest,
		ExpectedSHA1: "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", // sha1("hello world")
	}
	if err := e.Run(context.Background(), []FetchTask{task}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("destination contents = %q, want %q", data, "hello world")
	}
}

func TestExecutorRunFailsOnHashMismatch(t *testing.T) {
	pool, srv := newTestPool(t)
	dest := filepath.Join(t.TempDir(), "file.jar")

	e := NewExecutor(pool, 4, nil)
	task := FetchTask{
		URL:          srv.URL + "/ok",
		Destination:  dest,
		ExpectedSHA1: "0000000000000000000000000000000000000000",
	}
	if err := e.Run(context.Background(), []FetchTask{task}); err == nil {
		t.Fatal("Run succeeded despite a hash mismatch, want error")
	}
	if _, err := os.Stat(dest); err == nil {
		t.Errorf("destination file was written despite a hash mismatch")
	}
}

func TestExecutorRunSkipsExistingVerifiedFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.jar")
	if err := os.WriteFile(dest, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("seeding destination: %v", err)
	}

	requests := 0
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer proxy.Close()

	e := NewExecutor(httpclient.New(), 4, nil)
	task := FetchTask{
		URL:          proxy.URL,
		Destination:  dest,
		ExpectedSHA1: "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed",
	}
	if err := e.Run(context.Background(), []FetchTask{task}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if requests != 0 {
		t.Errorf("made %d requests, want 0 (file should have been skipped as already verified)", requests)
	}
}

func TestExecutorRunReportsProgress(t *testing.T) {
	pool, srv := newTestPool(t)
	dest := filepath.Join(t.TempDir(), "file.jar")

	progressCh := make(chan Progress, 16)
	e := NewExecutor(pool, 4, func(p Progress) { progressCh <- p })
	task := FetchTask{URL: srv.URL + "/ok", Destination: dest}
	if err := e.Run(context.Background(), []FetchTask{task}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var final Progress
	sawCompleted := false
	timeout := time.After(2 * time.Second)
	for !sawCompleted {
		select {
		case p := <-progressCh:
			final = p
			if p.Completed == p.TotalTasks {
				sawCompleted = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for a progress update reporting the task complete")
		}
	}
	if final.TotalTasks != 1 {
		t.Errorf("final progress TotalTasks = %d, want 1", final.TotalTasks)
	}
}
