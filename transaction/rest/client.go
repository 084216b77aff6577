package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
)

// Client speaks the transaction wire contract against a remote
// endpoint and satisfies transaction.Transaction, so the coordinator
// can drive uploads through an intermediary service instead of
// talking to object storage directly.
type Client struct {
	logger     logr.Logger
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(c *Client)

// WithClientHTTPClient overrides the HTTP client used for wire calls.
func WithClientHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient returns a Client rooted at baseURL, e.g.
// "https://files.example.com/api".
func NewClient(logger logr.Logger, baseURL string, options ...ClientOption) (c *Client) {
	c = &Client{
		logger:     logger.WithName("rest.client"),
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return
}

func (c *Client) Initiate(
	ctx context.Context,
	key string,
	contentType string,
) (transactionID string, err error) {
	var resp initiateResponse
	err = c.call(ctx, http.MethodPost, "/transactions",
		initiateRequest{Key: key, ContentType: contentType}, &resp)
	if err != nil {
		err = &transaction.InitError{Key: key, Err: err}
		return
	}
	transactionID = resp.TransactionID
	return
}

func (c *Client) AuthorizePart(
	ctx context.Context,
	transactionID string,
	partNumber int32,
) (auth transaction.PartAuthorization, err error) {
	path := fmt.Sprintf("/transactions/%s/parts/%d/authorization",
		url.PathEscape(transactionID), partNumber)

	var resp authorizeResponse
	if err = c.call(ctx, http.MethodPost, path, nil, &resp); err != nil {
		if !isTaxonomyError(err) {
			err = &transaction.AuthorizationError{
				TransactionID: transactionID,
				PartNumber:    partNumber,
				Err:           err,
			}
		}
		return
	}
	auth = resp.Authorization
	return
}

func (c *Client) Finalize(
	ctx context.Context,
	transactionID string,
	parts []transaction.CompletedPart,
) (objectID string, err error) {
	path := fmt.Sprintf("/transactions/%s/finalize", url.PathEscape(transactionID))

	var resp finalizeResponse
	if err = c.call(ctx, http.MethodPost, path, finalizeRequest{Parts: parts}, &resp); err != nil {
		if !isTaxonomyError(err) {
			err = &transaction.FinalizeError{TransactionID: transactionID, Err: err}
		}
		return
	}
	objectID = resp.ObjectID
	return
}

func (c *Client) Abort(ctx context.Context, transactionID string) (err error) {
	path := fmt.Sprintf("/transactions/%s", url.PathEscape(transactionID))
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

// call performs one wire exchange, decoding a success payload into
// out (when non-nil) and mapping error responses back onto the
// transaction error taxonomy.
func (c *Client) call(
	ctx context.Context,
	method string,
	path string,
	payload any,
	out any,
) (err error) {
	var body io.Reader
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			err = fmt.Errorf("encode request: %w", marshalErr)
			return
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err = c.decodeError(resp)
		return
	}
	if out != nil {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			err = fmt.Errorf("decode response: %w", err)
		}
	}
	return
}

func (c *Client) decodeError(resp *http.Response) (err error) {
	var wireErr errorResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&wireErr); decodeErr != nil {
		err = fmt.Errorf("unexpected response status %d", resp.StatusCode)
		return
	}

	switch wireErr.Code {
	case codeNotFound:
		err = transaction.ErrTransactionNotExists
	case codeAlreadyCompleted:
		err = transaction.ErrAlreadyCompleted
	case codeIncompleteParts:
		err = &transaction.IncompletePartsError{
			Expected: wireErr.Expected,
			Got:      wireErr.Got,
		}
	default:
		err = fmt.Errorf("%s: %s", wireErr.Code, wireErr.Message)
	}
	return
}

// isTaxonomyError reports whether err already carries transaction
// semantics and must not be wrapped again.
func isTaxonomyError(err error) bool {
	var incompleteErr *transaction.IncompletePartsError
	return errors.Is(err, transaction.ErrTransactionNotExists) ||
		errors.Is(err, transaction.ErrAlreadyCompleted) ||
		errors.As(err, &incompleteErr)
}
