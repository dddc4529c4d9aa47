package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/easelhouse/paintsip-backend/pkg/config"
)

func newTestClient(serverURL string) *Client {
	return newClient(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"}),
		config.GCSConfig{BucketName: "paintsip-canvases", PublicBaseURL: "https://cdn.paintsip.test/"},
		serverURL,
	)
}

func TestUploadSuccess(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("name") + "|" + r.URL.Query().Get("uploadType")
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"name":"canvas-1.png"}`))
	}))
	defer srv.Close()

	url, err := newTestClient(srv.URL).Upload(context.Background(), "/canvas-u1-1700000000.png", "image/png", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.paintsip.test/paintsip-canvases/canvas-u1-1700000000.png" {
		t.Fatalf("unexpected public url %q", url)
	}
	if gotPath != "/upload/storage/v1/b/paintsip-canvases/o" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "canvas-u1-1700000000.png|media" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotType != "image/png" || gotBody != "pngdata" {
		t.Fatalf("unexpected upload content %q %q", gotType, gotBody)
	}
}

func TestUploadFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Upload(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "forbidden") {
		t.Fatalf("expected 403 error with detail, got %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	client := newTestClient("http://unused")
	if _, err := client.Upload(context.Background(), " ", "image/png", strings.NewReader("x")); err == nil {
		t.Fatal("expected object name error")
	}
	if _, err := client.Upload(context.Background(), "a.png", "image/png", nil); err == nil {
		t.Fatal("expected body error")
	}
	var nilClient *Client
	if _, err := nilClient.Upload(context.Background(), "a.png", "image/png", strings.NewReader("x")); err != errNotInitialized {
		t.Fatalf("expected uninitialized error, got %v", err)
	}
	if nilClient.DefaultBucket() != "" {
		t.Fatal("nil client has no bucket")
	}
}

func TestPingChecksBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/b/paintsip-canvases/o" || r.URL.Query().Get("maxResults") != "1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPublicURLFallsBackToStorageHost(t *testing.T) {
	client := newClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}), config.GCSConfig{BucketName: "b"}, defaultAPIBase)
	if got := client.PublicURL("dir/a.png"); got != "https://storage.googleapis.com/b/dir/a.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestTokenSourceRejectsBadKey(t *testing.T) {
	_, _, err := tokenSource(context.Background(), config.GCPConfig{CredentialsJSON: `{"type":"authorized_user"`})
	if err == nil {
		t.Fatal("expected key parse error")
	}
	_, _, err = tokenSource(context.Background(), config.GCPConfig{ApplicationCredentials: "/nonexistent/key.json"})
	if err == nil || !strings.Contains(err.Error(), "credentials file") {
		t.Fatalf("expected file error, got %v", err)
	}
}
