// Package executor performs the byte transfer of a single part to its
// presigned destination. It owns nothing but the HTTP exchange: part
// sequencing, retries and state live in the coordinator.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/derektruong/mpxfer/internal/iometer"
	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
)

//go:generate mockgen -destination=mock/executor.go -package=mock_executor . Executor

// progressInterval throttles progress callbacks; at most ten fire per
// second regardless of how fast bytes move.
const progressInterval = 100 * time.Millisecond

var (
	// ErrAuthorizationExpired signals the store rejected the transfer
	// because the authorization's validity window passed. The caller
	// must re-authorize the part rather than retry verbatim.
	ErrAuthorizationExpired = errors.New("executor: part authorization expired")

	// ErrAborted signals cooperative cancellation of an in-flight
	// transfer. It is not a failure to report to the user.
	ErrAborted = errors.New("executor: transfer aborted")
)

// TransferError wraps a transport-level failure. Transfer errors are
// retryable at the part level.
type TransferError struct {
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("executor: transfer rejected with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("executor: transfer failed: %v", e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ProgressFunc receives the number of bytes transferred so far for the
// current part. Callbacks are throttled and always fire once more after
// the final byte.
type ProgressFunc func(bytesTransferred int64)

// Executor transfers one part's payload to its authorized destination.
type Executor interface {
	// Transfer PUTs size bytes from payload to the authorization's URL
	// and returns the integrity tag echoed by the store.
	//
	// Parameters:
	//  - ctx: cancelling it aborts the transfer immediately
	//  - auth: the part's presigned authorization
	//  - payload: the part's bytes
	//  - size: the exact payload length in bytes
	//  - onProgress: throttled progress callback, may be nil
	//
	// Returns:
	//  - integrityTag: the store-supplied tag required by Finalize
	//  - err: ErrAuthorizationExpired, ErrAborted, or *TransferError
	Transfer(
		ctx context.Context,
		auth transaction.PartAuthorization,
		payload io.Reader,
		size int64,
		onProgress ProgressFunc,
	) (integrityTag string, err error)
}

// httpExecutor uploads parts with plain presigned HTTP PUT requests.
type httpExecutor struct {
	logger logr.Logger
	client *http.Client

	// rateLimitBytesPerSec caps the read rate of each payload, zero
	// means unlimited
	rateLimitBytesPerSec float64
}

// HTTPOption customizes the HTTP executor.
type HTTPOption func(*httpExecutor)

// WithHTTPClient sets the http.Client used for part PUTs.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *httpExecutor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithRateLimit caps each part transfer at bytesPerSec.
func WithRateLimit(bytesPerSec float64) HTTPOption {
	return func(e *httpExecutor) {
		if bytesPerSec > 0 {
			e.rateLimitBytesPerSec = bytesPerSec
		}
	}
}

// NewHTTP constructs an Executor that PUTs parts to presigned URLs.
func NewHTTP(logger logr.Logger, options ...HTTPOption) Executor {
	e := &httpExecutor{
		logger: logger.WithName("executor"),
		client: http.DefaultClient,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *httpExecutor) Transfer(
	ctx context.Context,
	auth transaction.PartAuthorization,
	payload io.Reader,
	size int64,
	onProgress ProgressFunc,
) (integrityTag string, err error) {
	if auth.Expired(time.Now(), 0) {
		return "", ErrAuthorizationExpired
	}

	meter := iometer.NewMeterReader(ctx, payload)
	if e.rateLimitBytesPerSec > 0 {
		meter.SetRateLimit(e.rateLimitBytesPerSec)
	}

	stopProgress := e.reportProgress(ctx, meter, onProgress)
	defer stopProgress()

	// An empty part must be sent with http.NoBody: a non-nil body with
	// ContentLength 0 is treated as unknown length and gets chunked.
	var body io.Reader = meter
	if size == 0 {
		body = http.NoBody
	}

	var req *http.Request
	if req, err = http.NewRequestWithContext(ctx, http.MethodPut, auth.URL, body); err != nil {
		return "", &TransferError{Err: err}
	}
	for name, values := range auth.Header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	// Content-Length must be set explicitly to prevent chunked
	// transfer encoding, which presigned S3 PUTs reject.
	req.ContentLength = size

	var res *http.Response
	if res, err = e.client.Do(req); err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return "", ErrAborted
		}
		return "", &TransferError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body := new(strings.Builder)
		_, _ = io.Copy(body, io.LimitReader(res.Body, 2048))
		if isExpiryResponse(res.StatusCode, body.String(), auth) {
			return "", ErrAuthorizationExpired
		}
		return "", &TransferError{
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", body.String()),
		}
	}

	if onProgress != nil {
		onProgress(meter.Transferred())
	}

	integrityTag = strings.Trim(res.Header.Get("ETag"), `"`)
	if integrityTag == "" {
		return "", &TransferError{Err: errors.New("store response carried no integrity tag")}
	}
	return integrityTag, nil
}

// reportProgress emits throttled callbacks until the returned stop
// function is called.
func (e *httpExecutor) reportProgress(
	ctx context.Context,
	meter *iometer.MeterReader,
	onProgress ProgressFunc,
) (stop func()) {
	if onProgress == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				onProgress(meter.Transferred())
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// isExpiryResponse distinguishes an expired authorization from other
// rejections. S3-compatible stores answer 403 with an AccessDenied or
// ExpiredToken code once the presigned window has passed.
func isExpiryResponse(statusCode int, body string, auth transaction.PartAuthorization) bool {
	if statusCode != http.StatusForbidden {
		return false
	}
	if auth.Expired(time.Now(), 0) {
		return true
	}
	return strings.Contains(body, "ExpiredToken") ||
		strings.Contains(body, "Request has expired") ||
		strings.Contains(body, "AccessDenied")
}
