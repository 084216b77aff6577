package source

import (
	"context"
	"errors"
	"io"
	"time"
)

//go:generate mockgen -destination=mock/source.go -package=mock_source . File

// ErrRangeInvalid reports a byte range outside the file's bounds,
// a programming error in the caller's part arithmetic.
var ErrRangeInvalid = errors.New("source: byte range outside file bounds")

// Info describes the payload captured at enqueue time. It is immutable
// for the lifetime of an upload task.
type Info struct {
	// Name is the file name presented to the catalog on completion
	Name string `json:"name"`

	// Size is the total payload size in bytes
	Size int64 `json:"size"`

	// ContentType is the declared media type of the payload
	ContentType string `json:"contentType"`

	// ModTime is the modification time of the underlying file
	ModTime time.Time `json:"modTime"`
}

// File supplies the bytes of one upload's payload. Implementations must
// support repeated range reads: a part that fails transiently is read
// again on retry.
type File interface {
	// Info returns the payload's immutable description.
	Info() Info

	// OpenRange returns a reader over the half-open byte range
	// [start, end). The caller closes the reader after the part
	// transfer settles.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - start: first byte of the range, inclusive
	//  - end: end of the range, exclusive, at most Info().Size
	//
	// Returns:
	//  - reader: the range's bytes
	//  - err: ErrRangeInvalid or an I/O error, nil otherwise
	OpenRange(ctx context.Context, start, end int64) (reader io.ReadCloser, err error)

	// Close releases the underlying file handle.
	Close() error
}
