// Package sourcetest provides in-memory payload sources for tests.
package sourcetest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/mpxfer/source"
)

// MemoryFile is a source.File over an in-memory byte slice.
type MemoryFile struct {
	data []byte
	info source.Info
}

// FileFactory builds a MemoryFile with randomized metadata and size
// bytes of deterministic content. mutators adjust the generated info.
func FileFactory(size int64, mutators ...func(*source.Info)) *MemoryFile {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	info := source.Info{
		Name:        fmt.Sprintf("%s.%s", gofakeit.Word(), gofakeit.FileExtension()),
		Size:        size,
		ContentType: gofakeit.FileMimeType(),
		ModTime:     gofakeit.PastDate(),
	}
	for _, mutate := range mutators {
		mutate(&info)
	}
	info.Size = size
	return &MemoryFile{data: data, info: info}
}

func (m *MemoryFile) Info() source.Info {
	return m.info
}

func (m *MemoryFile) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	if start < 0 || end < start || end > int64(len(m.data)) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", source.ErrRangeInvalid, start, end, len(m.data))
	}
	return io.NopCloser(bytes.NewReader(m.data[start:end])), nil
}

func (m *MemoryFile) Close() error { return nil }

// Bytes exposes the backing content for assertions.
func (m *MemoryFile) Bytes() []byte { return m.data }
