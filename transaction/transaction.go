package transaction

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mock/transaction.go -package=mock_transaction . Transaction

// PartAuthorization is a time-limited credential permitting the holder
// to transfer exactly one part directly to the object store.
type PartAuthorization struct {
	// URL is the presigned destination the part's bytes must be PUT to.
	URL string `json:"url"`

	// Header contains additional headers that must accompany the PUT
	// request (signed headers, content type).
	Header http.Header `json:"header,omitempty"`

	// PartNumber is the 1-indexed part the authorization is valid for.
	PartNumber int32 `json:"partNumber"`

	// ExpiresAt is the instant after which the store rejects transfers
	// using this authorization.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the authorization is already known to be
// unusable at the given instant. A small safety margin avoids handing
// out authorizations that expire mid-transfer.
func (a PartAuthorization) Expired(now time.Time, margin time.Duration) bool {
	return !a.ExpiresAt.IsZero() && !now.Add(margin).Before(a.ExpiresAt)
}

// CompletedPart pairs a part number with the integrity tag echoed back
// by the object store after the part's bytes were received.
type CompletedPart struct {
	Number       int32  `json:"partNumber"`
	IntegrityTag string `json:"integrityTag"`
}

// Transaction is the remote object store's multi-part upload session.
// Implementations must be safe for concurrent use; the coordinator
// issues AuthorizePart calls for several parts of the same transaction
// at once while prefetching.
type Transaction interface {
	// Initiate opens a new multi-part upload session for the object key
	// and returns the store-assigned transaction ID.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - key: the destination object key
	//  - contentType: the declared content type of the final object
	//
	// Returns:
	//  - transactionID: the store-assigned session identifier
	//  - err: an *InitError on failure, nil otherwise
	Initiate(ctx context.Context, key, contentType string) (transactionID string, err error)

	// AuthorizePart obtains a time-limited authorization to transfer a
	// single part. Authorizations for the same part may be requested
	// repeatedly; each call yields a fresh validity window.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - transactionID: the session returned by Initiate
	//  - partNumber: the 1-indexed part to authorize
	//
	// Returns:
	//  - auth: the presigned authorization
	//  - err: an *AuthorizationError on failure, nil otherwise
	AuthorizePart(ctx context.Context, transactionID string, partNumber int32) (auth PartAuthorization, err error)

	// Finalize completes the session from the ordered (part number,
	// integrity tag) pairs. Parts must be sorted ascending with no gaps
	// from 1..n; a gap or tag mismatch yields an *IncompletePartsError.
	// Finalizing an already-finalized session yields ErrAlreadyCompleted.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - transactionID: the session returned by Initiate
	//  - parts: every part of the upload, ascending by part number
	//
	// Returns:
	//  - objectID: the identifier of the assembled object
	//  - err: the error if any occurred, nil otherwise
	Finalize(ctx context.Context, transactionID string, parts []CompletedPart) (objectID string, err error)

	// Abort discards the session and any parts the store has retained
	// for it. Abort is idempotent: aborting an unknown or already
	// aborted session is not an error.
	Abort(ctx context.Context, transactionID string) error
}

// VerifyPartSequence checks that parts form the exact sequence 1..n
// ascending with no gaps or duplicates. Implementations call it before
// handing the list to the store so a malformed sequence never reaches
// the remote side.
func VerifyPartSequence(parts []CompletedPart) error {
	for i, part := range parts {
		if want := int32(i + 1); part.Number != want {
			return &IncompletePartsError{Expected: want, Got: part.Number}
		}
	}
	if len(parts) == 0 {
		return &IncompletePartsError{Expected: 1, Got: 0}
	}
	return nil
}
