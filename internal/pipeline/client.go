package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"amreingest/internal/config"
	"amreingest/internal/logging"
)

// Client is the set of remote operations the reingest engine depends on.
type Client interface {
	StartReingest(ctx context.Context, pipelineID, packageID, processingConfig string) (Reingest, error)
	TransferStatus(ctx context.Context, transferID string) (UnitStatus, error)
	IngestStatus(ctx context.Context, packageID string) (UnitStatus, error)
	PackageStatus(ctx context.Context, packageID string) (PackageStatus, error)
	ApproveTransfer(ctx context.Context, directory string) (Approval, error)
	Pipelines(ctx context.Context) ([]Pipeline, error)
	ProcessingConfigExists(ctx context.Context, name string) (bool, error)
	CompressedPackages(ctx context.Context) (map[string]Package, error)
}

// HTTPDoer describes the HTTP client used to reach the pipeline.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxResponseBytes = 8 << 20

type endpoint struct {
	name    string
	baseURL string
	user    string
	apiKey  string
}

func (e endpoint) url(path string) string {
	return e.baseURL + path
}

// resolve turns a pagination link, which may be absolute or host-relative,
// into a full URL.
func (e endpoint) resolve(ref string) (string, error) {
	base, err := url.Parse(e.baseURL + "/")
	if err != nil {
		return "", err
	}
	next, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(next).String(), nil
}

func (e endpoint) authorization() string {
	return fmt.Sprintf("ApiKey %s:%s", e.user, e.apiKey)
}

// HTTPClient implements Client against the Archivematica dashboard and
// Storage Service REST APIs.
type HTTPClient struct {
	dashboard    endpoint
	storage      endpoint
	reingestType string
	client       HTTPDoer
	logger       *slog.Logger
}

// Option customizes the HTTP client.
type Option func(*HTTPClient)

// WithHTTPDoer overrides the default HTTP client.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *HTTPClient) {
		if doer != nil {
			c.client = doer
		}
	}
}

// NewHTTPClient constructs a client from the archivematica and
// storage_service config sections.
func NewHTTPClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		dashboard: endpoint{
			name:    "archivematica",
			baseURL: strings.TrimRight(cfg.Archivematica.URL, "/"),
			user:    cfg.Archivematica.User,
			apiKey:  cfg.Archivematica.APIKey,
		},
		storage: endpoint{
			name:    "storage service",
			baseURL: strings.TrimRight(cfg.StorageService.URL, "/"),
			user:    cfg.StorageService.User,
			apiKey:  cfg.StorageService.APIKey,
		},
		reingestType: cfg.Reingest.ReingestType,
		client:       &http.Client{Timeout: cfg.RequestTimeout()},
		logger:       logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op          string
	ep          endpoint
	method      string
	target      string
	body        io.Reader
	contentType string
}

// do performs req and returns the status code and body. Transport failures
// and non-2xx responses are returned as *Error alongside whatever body was
// read, so callers can inspect error payloads.
func (c *HTTPClient) do(ctx context.Context, req request) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.target, req.body)
	if err != nil {
		return 0, nil, &Error{Op: req.op, Code: CodeUnknown, Err: err}
	}
	httpReq.Header.Set("Authorization", req.ep.authorization())
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	c.logger.Debug("pipeline request",
		logging.String("op", req.op),
		logging.String("method", req.method),
		logging.String("url", req.target),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, fmt.Errorf("%s: %w", req.op, ctxErr)
		}
		return 0, nil, &Error{Op: req.op, Code: CodeServerConn, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &Error{Op: req.op, Code: CodeServerConn, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, data, &Error{
			Op:         req.op,
			Code:       CodeInvalidResponse,
			StatusCode: resp.StatusCode,
			Err:        errors.New(snippet(data)),
		}
	}
	return resp.StatusCode, data, nil
}

func snippet(data []byte) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "empty response body"
	}
	const limit = 200
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
