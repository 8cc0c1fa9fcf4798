package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// approvalType is the transfer type the dashboard expects for reingests.
const approvalType = "standard"

// TransferStatus reports the state of a transfer unit. A response without a
// status field is not usable and is reported as ErrNoData.
func (c *HTTPClient) TransferStatus(ctx context.Context, transferID string) (UnitStatus, error) {
	return c.unitStatus(ctx, "transfer status", "/api/transfer/status/"+url.PathEscape(transferID)+"/")
}

// IngestStatus reports the state of the ingest unit for a package.
func (c *HTTPClient) IngestStatus(ctx context.Context, packageID string) (UnitStatus, error) {
	return c.unitStatus(ctx, "ingest status", "/api/ingest/status/"+url.PathEscape(packageID)+"/")
}

func (c *HTTPClient) unitStatus(ctx context.Context, op, path string) (UnitStatus, error) {
	_, data, err := c.do(ctx, request{
		op:     op,
		ep:     c.dashboard,
		method: http.MethodGet,
		target: c.dashboard.url(path),
	})
	if err != nil {
		return UnitStatus{}, err
	}
	var status UnitStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return UnitStatus{}, &Error{Op: op, Code: CodeParseJSON, Err: err}
	}
	if strings.TrimSpace(status.Status) == "" {
		return UnitStatus{}, &Error{Op: op, Code: CodeInvalidResponse, Err: errors.New("response has no status")}
	}
	return status, nil
}

type approvalResponse struct {
	Error   any    `json:"error"`
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

func (r approvalResponse) failed() bool {
	switch v := r.Error.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// ApproveTransfer approves the transfer waiting in directory. An explicit
// refusal from the dashboard is reported as ErrApproval; connection and
// response failures as ErrNoData.
func (c *HTTPClient) ApproveTransfer(ctx context.Context, directory string) (Approval, error) {
	const op = "approve transfer"
	form := url.Values{}
	form.Set("type", approvalType)
	form.Set("directory", directory)

	_, data, err := c.do(ctx, request{
		op:          op,
		ep:          c.dashboard,
		method:      http.MethodPost,
		target:      c.dashboard.url("/api/transfer/approve/"),
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})

	var resp approvalResponse
	if len(data) > 0 {
		if decodeErr := json.Unmarshal(data, &resp); decodeErr != nil && err == nil {
			return Approval{}, &Error{Op: op, Code: CodeParseJSON, Err: decodeErr}
		}
	}
	if resp.failed() {
		msg := resp.Message
		if msg == "" {
			msg = "dashboard returned an error"
		}
		return Approval{}, fmt.Errorf("%w: %s: %s", ErrApproval, directory, msg)
	}
	if err != nil {
		return Approval{}, err
	}
	if resp.UUID == "" {
		return Approval{}, &Error{Op: op, Code: CodeInvalidResponse, Err: errors.New("response has no uuid")}
	}
	return Approval{UUID: resp.UUID, Message: resp.Message}, nil
}

// ProcessingConfigExists reports whether the dashboard knows the named
// processing configuration.
func (c *HTTPClient) ProcessingConfigExists(ctx context.Context, name string) (bool, error) {
	status, _, err := c.do(ctx, request{
		op:     "processing configuration",
		ep:     c.dashboard,
		method: http.MethodGet,
		target: c.dashboard.url("/api/processing-configuration/" + url.PathEscape(name) + "/"),
	})
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
