package rest

import "github.com/derektruong/mpxfer/transaction"

// Error codes carried in error responses so clients can map failures
// back onto the transaction error taxonomy.
const (
	codeBadRequest          = "bad_request"
	codeNotFound            = "transaction_not_found"
	codeAlreadyCompleted    = "already_completed"
	codeIncompleteParts     = "incomplete_parts"
	codeInitFailed          = "init_failed"
	codeAuthorizationFailed = "authorization_failed"
	codeFinalizeFailed      = "finalize_failed"
	codeAbortFailed         = "abort_failed"
)

type initiateRequest struct {
	Key         string `json:"key" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

type initiateResponse struct {
	TransactionID string `json:"transactionId"`
}

type authorizeResponse struct {
	Authorization transaction.PartAuthorization `json:"authorization"`
}

type finalizeRequest struct {
	Parts []transaction.CompletedPart `json:"parts" validate:"required,min=1"`
}

type finalizeResponse struct {
	ObjectID string `json:"objectId"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Expected and Got describe the first part sequence gap when Code
	// is incomplete_parts
	Expected int32 `json:"expected,omitempty"`
	Got      int32 `json:"got,omitempty"`
}
