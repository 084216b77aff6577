package iometer

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

//go:generate mockgen -destination=mock/readcloser.go -package=mock_iometer io ReadCloser

const burstLimit = 1024 * 1024 * 1024 // 1GB

// MeterReader wraps an io.Reader, counts the bytes read from it and
// optionally throttles the read rate. The transfer executor wraps every
// part payload in one so progress and speed can be derived without the
// destination cooperating.
type MeterReader struct {
	reader  io.Reader
	limiter *rate.Limiter

	// transferred is the number of bytes read so far, updated atomically
	// so progress reporters may observe it from other goroutines.
	transferred atomic.Int64

	// ctx bounds limiter waits
	ctx context.Context

	// closed is a flag that indicates if the reader is closed
	closed bool
}

// NewMeterReader constructs a new MeterReader over reader.
func NewMeterReader(ctx context.Context, reader io.Reader) (mr *MeterReader) {
	mr = &MeterReader{
		reader: reader,
		ctx:    ctx,
	}
	return
}

// Read reads from the underlying reader and increments the counter.
func (mr *MeterReader) Read(p []byte) (n int, err error) {
	if n, err = mr.reader.Read(p); err != nil {
		return
	}
	if mr.limiter != nil {
		if err = mr.limiter.WaitN(mr.ctx, n); err != nil {
			return
		}
	}
	if n > 0 {
		mr.transferred.Add(int64(n))
	}
	return
}

// Close closes the underlying io.Reader if it implements the
// io.Closer interface.
func (mr *MeterReader) Close() (err error) {
	if mr.closed {
		return
	}
	if closer, ok := mr.reader.(io.Closer); ok {
		err = closer.Close()
	}
	mr.closed = true
	return
}

// Transferred returns the number of bytes read so far.
func (mr *MeterReader) Transferred() int64 {
	return mr.transferred.Load()
}

// SetRateLimit caps the read rate at bytesPerSec.
func (mr *MeterReader) SetRateLimit(bytesPerSec float64) {
	mr.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burstLimit)
	mr.limiter.AllowN(time.Now(), burstLimit) // spend initial burst
}
