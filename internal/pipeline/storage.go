package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

type reingestRequest struct {
	Pipeline         string `json:"pipeline"`
	ReingestType     string `json:"reingest_type"`
	ProcessingConfig string `json:"processing_config"`
}

type reingestResponse struct {
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	ReingestUUID string `json:"reingest_uuid"`
}

// StartReingest asks the Storage Service to reingest packageID on
// pipelineID. An explicit refusal is reported as ErrRejected.
func (c *HTTPClient) StartReingest(ctx context.Context, pipelineID, packageID, processingConfig string) (Reingest, error) {
	const op = "start reingest"
	body, err := json.Marshal(reingestRequest{
		Pipeline:         pipelineID,
		ReingestType:     c.reingestType,
		ProcessingConfig: processingConfig,
	})
	if err != nil {
		return Reingest{}, fmt.Errorf("%s: encode request: %w", op, err)
	}

	_, data, err := c.do(ctx, request{
		op:          op,
		ep:          c.storage,
		method:      http.MethodPost,
		target:      c.storage.url("/api/v2/file/" + url.PathEscape(packageID) + "/reingest/"),
		body:        bytes.NewReader(body),
		contentType: "application/json",
	})

	var resp reingestResponse
	if len(data) > 0 {
		if decodeErr := json.Unmarshal(data, &resp); decodeErr != nil && err == nil {
			return Reingest{}, &Error{Op: op, Code: CodeParseJSON, Err: decodeErr}
		}
	}
	if resp.Error {
		return Reingest{}, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	if err != nil {
		return Reingest{}, err
	}
	if resp.ReingestUUID == "" {
		return Reingest{}, &Error{Op: op, Code: CodeInvalidResponse, Err: errors.New("response has no reingest_uuid")}
	}
	return Reingest{ReingestUUID: resp.ReingestUUID, Message: resp.Message}, nil
}

// PackageStatus returns the Storage Service details for a package.
func (c *HTTPClient) PackageStatus(ctx context.Context, packageID string) (PackageStatus, error) {
	const op = "package status"
	_, data, err := c.do(ctx, request{
		op:     op,
		ep:     c.storage,
		method: http.MethodGet,
		target: c.storage.url("/api/v2/file/" + url.PathEscape(packageID) + "/"),
	})
	if err != nil {
		return PackageStatus{}, err
	}
	var pkg PackageStatus
	if err := json.Unmarshal(data, &pkg); err != nil {
		return PackageStatus{}, &Error{Op: op, Code: CodeParseJSON, Err: err}
	}
	if pkg.Status == "" {
		return PackageStatus{}, &Error{Op: op, Code: CodeInvalidResponse, Err: errors.New("response has no status")}
	}
	return pkg, nil
}

type listMeta struct {
	Next       string `json:"next"`
	TotalCount int    `json:"total_count"`
}

type pipelineList struct {
	Meta    listMeta   `json:"meta"`
	Objects []Pipeline `json:"objects"`
}

type packageList struct {
	Meta    listMeta        `json:"meta"`
	Objects []PackageStatus `json:"objects"`
}

// Pipelines lists the pipelines registered with the Storage Service.
func (c *HTTPClient) Pipelines(ctx context.Context) ([]Pipeline, error) {
	const op = "list pipelines"
	_, data, err := c.do(ctx, request{
		op:     op,
		ep:     c.storage,
		method: http.MethodGet,
		target: c.storage.url("/api/v2/pipeline/"),
	})
	if err != nil {
		return nil, err
	}
	var list pipelineList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &Error{Op: op, Code: CodeParseJSON, Err: err}
	}
	return list.Objects, nil
}

// maxPackagePages bounds pagination in case the server keeps returning a
// next link.
const maxPackagePages = 10000

// CompressedPackages returns every uploaded, compressed AIP in the Storage
// Service keyed by package uuid.
func (c *HTTPClient) CompressedPackages(ctx context.Context) (map[string]Package, error) {
	const op = "list packages"
	packages := make(map[string]Package)
	target := c.storage.url("/api/v2/file/?package_type=AIP")

	for page := 0; target != ""; page++ {
		if page >= maxPackagePages {
			return nil, fmt.Errorf("%s: more than %d pages", op, maxPackagePages)
		}
		_, data, err := c.do(ctx, request{
			op:     op,
			ep:     c.storage,
			method: http.MethodGet,
			target: target,
		})
		if err != nil {
			return nil, err
		}
		var list packageList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, &Error{Op: op, Code: CodeParseJSON, Err: err}
		}
		for _, pkg := range list.Objects {
			if pkg.Uploaded() && pkg.Compressed() {
				packages[pkg.UUID] = pkg
			}
		}

		target = ""
		if list.Meta.Next != "" {
			next, err := c.storage.resolve(list.Meta.Next)
			if err != nil {
				return nil, &Error{Op: op, Code: CodeInvalidResponse, Err: err}
			}
			target = next
		}
	}
	return packages, nil
}
