package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSONUnmarshalsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1.21","type":"release"}`))
	}))
	defer srv.Close()

	var out struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := New().GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.ID != "1.21" || out.Type != "release" {
		t.Errorf("out = %+v, want {1.21 release}", out)
	}
}

func TestGetJSONReturnsErrorOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out struct{}
	if err := New().GetJSON(context.Background(), srv.URL, &out); err == nil {
		t.Error("GetJSON on a 500 response succeeded, want error")
	}
}

func TestStreamToCopiesBodyAndReportsChunks(t *testing.T) {
	const body = "hello streaming world"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	var dst bytes.Buffer
	var seen int
	contentLength, err := New().StreamTo(context.Background(), srv.URL, &dst, func(n int) { seen += n })
	if err != nil {
		t.Fatalf("StreamTo: %v", err)
	}
	if dst.String() != body {
		t.Errorf("dst = %q, want %q", dst.String(), body)
	}
	if seen != len(body) {
		t.Errorf("onChunk reported %d total bytes, want %d", seen, len(body))
	}
	if contentLength != int64(len(body)) {
		t.Errorf("contentLength = %d, want %d", contentLength, len(body))
	}
}

func TestStreamToReturnsStatusErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var dst bytes.Buffer
	_, err := New().StreamTo(context.Background(), srv.URL, &dst, nil)
	if err == nil {
		t.Fatal("StreamTo on a 404 succeeded, want error")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("err is %T, want *StatusError", err)
	}
	if statusErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
	if statusErr.Transient() {
		t.Error("a 404 should be terminal, not transient")
	}
}

func TestStatusErrorTransientClassifiesByStatus(t *testing.T) {
	if (&StatusError{StatusCode: 503}).Transient() != true {
		t.Error("503 should be transient")
	}
	if (&StatusError{StatusCode: 400}).Transient() != false {
		t.Error("400 should not be transient")
	}
}
