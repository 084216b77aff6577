// Package s3 implements the remote upload transaction against AWS S3
// or any S3-compatible store.
//
// A transaction maps onto one S3 multipart upload. Initiate creates the
// multipart upload, AuthorizePart presigns an UploadPart request for
// the part so the caller can PUT the bytes directly, Finalize completes
// the multipart upload from the collected ETags, and Abort discards it.
// The user accessing the bucket needs at least:
//
//	s3:AbortMultipartUpload
//	s3:ListMultipartUploadParts
//	s3:PutObject
package s3

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

const defaultAuthorizationTTL = time.Hour

// Transaction is a transaction.Transaction backed by S3 multipart
// uploads.
type Transaction struct {
	logger    logr.Logger
	api       API
	presigner PresignAPI
	bucket    string

	// authorizationTTL is the validity window of presigned part URLs
	authorizationTTL time.Duration

	// keysMu and keys map upload IDs back to their object keys, which
	// every S3 call after Initiate needs. Unknown IDs fall back to
	// ListMultipartUploads so sessions survive a process restart.
	keysMu sync.Mutex
	keys   map[string]string
}

// TransactionOption customizes the S3 transaction.
type TransactionOption func(*Transaction)

// WithAuthorizationTTL sets the validity window of presigned part
// authorizations. Default is 1 hour.
func WithAuthorizationTTL(ttl time.Duration) TransactionOption {
	return func(t *Transaction) {
		if ttl > 0 {
			t.authorizationTTL = ttl
		}
	}
}

// NewTransaction constructs a Transaction over an S3 API and presigner.
func NewTransaction(
	logger logr.Logger,
	api API,
	presigner PresignAPI,
	bucket string,
	options ...TransactionOption,
) (t *Transaction) {
	t = &Transaction{
		logger:           logger.WithName("s3.transaction"),
		api:              api,
		presigner:        presigner,
		bucket:           bucket,
		authorizationTTL: defaultAuthorizationTTL,
		keys:             make(map[string]string),
	}
	for _, opt := range options {
		opt(t)
	}
	return
}

// NewTransactionFromClient constructs a Transaction from connection
// settings, wiring the SDK client and its presign client.
func NewTransactionFromClient(logger logr.Logger, client Client, options ...TransactionOption) *Transaction {
	api := client.API()
	return NewTransaction(logger, api, awss3.NewPresignClient(api), client.BucketName, options...)
}

func (t *Transaction) Initiate(ctx context.Context, key, contentType string) (transactionID string, err error) {
	res, err := t.api.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", &transaction.InitError{Key: key, Err: err}
	}
	transactionID = aws.ToString(res.UploadId)

	t.keysMu.Lock()
	t.keys[transactionID] = key
	t.keysMu.Unlock()

	t.logger.Info("initiated multipart upload",
		"transactionID", transactionID, "objectKey", key)
	return transactionID, nil
}

func (t *Transaction) AuthorizePart(
	ctx context.Context,
	transactionID string,
	partNumber int32,
) (auth transaction.PartAuthorization, err error) {
	var key string
	if key, err = t.resolveKey(ctx, transactionID); err != nil {
		err = &transaction.AuthorizationError{TransactionID: transactionID, PartNumber: partNumber, Err: err}
		return
	}

	req, err := t.presigner.PresignUploadPart(ctx, &awss3.UploadPartInput{
		Bucket:     aws.String(t.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(transactionID),
		PartNumber: aws.Int32(partNumber),
	}, func(opts *awss3.PresignOptions) {
		opts.Expires = t.authorizationTTL
	})
	if err != nil {
		err = &transaction.AuthorizationError{TransactionID: transactionID, PartNumber: partNumber, Err: err}
		return
	}

	auth = transaction.PartAuthorization{
		URL:        req.URL,
		Header:     req.SignedHeader,
		PartNumber: partNumber,
		ExpiresAt:  time.Now().Add(t.authorizationTTL),
	}
	return
}

func (t *Transaction) Finalize(
	ctx context.Context,
	transactionID string,
	parts []transaction.CompletedPart,
) (objectID string, err error) {
	// callers over the wire may deliver parts unordered
	parts = slices.Clone(parts)
	slices.SortFunc(parts, func(a, b transaction.CompletedPart) int {
		return int(a.Number - b.Number)
	})
	if err = transaction.VerifyPartSequence(parts); err != nil {
		return
	}

	var key string
	if key, err = t.resolveKey(ctx, transactionID); err != nil {
		if errors.Is(err, transaction.ErrTransactionNotExists) {
			// a vanished session most commonly means a prior finalize
			// already assembled the object
			err = transaction.ErrAlreadyCompleted
		}
		return
	}

	completedParts := lo.Map(parts, func(p transaction.CompletedPart, _ int) types.CompletedPart {
		return types.CompletedPart{
			ETag:       aws.String(p.IntegrityTag),
			PartNumber: aws.Int32(p.Number),
		}
	})

	res, err := t.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:   aws.String(t.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(transactionID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		if isAwsError[*types.NoSuchUpload](err) || isAwsErrorCode(err, "NoSuchUpload") {
			return "", transaction.ErrAlreadyCompleted
		}
		return "", &transaction.FinalizeError{TransactionID: transactionID, Err: err}
	}

	t.keysMu.Lock()
	delete(t.keys, transactionID)
	t.keysMu.Unlock()

	objectID = fmt.Sprintf("%s/%s", t.bucket, aws.ToString(res.Key))
	t.logger.Info("finalized multipart upload",
		"transactionID", transactionID, "objectID", objectID, "parts", len(parts))
	return objectID, nil
}

func (t *Transaction) Abort(ctx context.Context, transactionID string) (err error) {
	var key string
	if key, err = t.resolveKey(ctx, transactionID); err != nil {
		if errors.Is(err, transaction.ErrTransactionNotExists) {
			// already gone, abort is idempotent
			return nil
		}
		return
	}

	if _, err = t.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(t.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(transactionID),
	}); err != nil && !isAwsError[*types.NoSuchUpload](err) && !isAwsErrorCode(err, "NoSuchUpload") {
		return fmt.Errorf("unable to abort multipart upload %s: %w", transactionID, err)
	}

	t.keysMu.Lock()
	delete(t.keys, transactionID)
	t.keysMu.Unlock()
	return nil
}

// resolveKey maps an upload ID to its object key, consulting the store
// when the in-memory table misses.
func (t *Transaction) resolveKey(ctx context.Context, transactionID string) (key string, err error) {
	t.keysMu.Lock()
	key, ok := t.keys[transactionID]
	t.keysMu.Unlock()
	if ok {
		return key, nil
	}

	var keyMarker, idMarker *string
	for {
		var res *awss3.ListMultipartUploadsOutput
		if res, err = t.api.ListMultipartUploads(ctx, &awss3.ListMultipartUploadsInput{
			Bucket:         aws.String(t.bucket),
			KeyMarker:      keyMarker,
			UploadIdMarker: idMarker,
		}); err != nil {
			return "", fmt.Errorf("unable to list multipart uploads: %w", err)
		}
		for _, upload := range res.Uploads {
			if aws.ToString(upload.UploadId) == transactionID {
				key = aws.ToString(upload.Key)
				t.keysMu.Lock()
				t.keys[transactionID] = key
				t.keysMu.Unlock()
				return key, nil
			}
		}
		if res.IsTruncated == nil || !*res.IsTruncated {
			break
		}
		keyMarker = res.NextKeyMarker
		idMarker = res.NextUploadIdMarker
	}
	return "", transaction.ErrTransactionNotExists
}

// isAwsError tests whether an error object is an instance of the AWS
// error specified by its type.
func isAwsError[T error](err error) bool {
	var awsErr T
	return errors.As(err, &awsErr)
}

func isAwsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
