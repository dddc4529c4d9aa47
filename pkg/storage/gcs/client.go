package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	readWriteScope = "https://www.googleapis.com/auth/devstorage.read_write"
	defaultAPIBase = "https://storage.googleapis.com"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	errBodyLimit   = 2048
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client uploads canvas images to one bucket through the Cloud Storage JSON API.
type Client struct {
	http      *http.Client
	bucket    string
	publicURL string
	apiBase   string
}

// NewClient resolves credentials in this order: inline JSON, a key file,
// then Application Default Credentials (metadata server on GCP).
// The bucket is probed once before the client is returned.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	ts, source, err := tokenSource(ctx, gcp)
	if err != nil {
		return nil, err
	}

	client := newClient(ts, cfg, defaultAPIBase)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %q unreachable: %w", cfg.BucketName, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"bucket":      cfg.BucketName,
			"credentials": source,
		}), "gcs client initialized")
	}
	return client, nil
}

func newClient(ts oauth2.TokenSource, cfg config.GCSConfig, apiBase string) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts)},
		},
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		apiBase:   strings.TrimRight(apiBase, "/"),
	}
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, string, error) {
	keyJSON := []byte(gcp.CredentialsJSON)
	source := "inline"
	if len(keyJSON) == 0 && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, "", fmt.Errorf("read gcp credentials file: %w", err)
		}
		keyJSON, source = raw, "file"
	}
	if len(keyJSON) == 0 {
		ts, err := google.DefaultTokenSource(ctx, readWriteScope)
		if err != nil {
			return nil, "", fmt.Errorf("application default credentials: %w", err)
		}
		return ts, "default", nil
	}
	jwtCfg, err := google.JWTConfigFromJSON(keyJSON, readWriteScope)
	if err != nil {
		return nil, "", fmt.Errorf("parse service account key: %w", err)
	}
	return jwtCfg.TokenSource(ctx), source, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiBase, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, "bucket check")
}

// Upload stores body as object with a single-request media upload and
// returns the browser-facing URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	if c == nil || c.http == nil {
		return "", errNotInitialized
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return "", errors.New("object name is required")
	}
	if body == nil {
		return "", errors.New("upload body is required")
	}

	query := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if err := c.do(req, "upload"); err != nil {
		return "", err
	}
	return c.PublicURL(object), nil
}

// PublicURL is base/bucket/object; base defaults to the storage host.
func (c *Client) PublicURL(object string) string {
	base := c.publicURL
	if base == "" {
		base = defaultAPIBase
	}
	return base + "/" + c.bucket + "/" + strings.TrimLeft(object, "/")
}

func (c *Client) Close() error { return nil }

func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gcs %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	if msg := strings.TrimSpace(string(detail)); msg != "" {
		return fmt.Errorf("gcs %s failed: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("gcs %s failed: %s", op, resp.Status)
}
