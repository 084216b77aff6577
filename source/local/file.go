package local

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/derektruong/mpxfer/internal/fileutils"
	"github.com/derektruong/mpxfer/source"
)

// File is a source.File backed by a file on the local filesystem.
type File struct {
	path string
	file *os.File
	info source.Info
}

// Open stats the file at path and captures its metadata. The content
// type is derived from the extension; callers may override it before
// enqueueing.
func Open(path string) (f *File, err error) {
	var handle *os.File
	if handle, err = os.Open(path); err != nil {
		return
	}
	var stat os.FileInfo
	if stat, err = handle.Stat(); err != nil {
		_ = handle.Close()
		return
	}
	if _, _, err = fileutils.SplitName(path); err != nil {
		_ = handle.Close()
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f = &File{
		path: path,
		file: handle,
		info: source.Info{
			Name:        filepath.Base(path),
			Size:        stat.Size(),
			ContentType: contentType,
			ModTime:     stat.ModTime(),
		},
	}
	return
}

func (f *File) Info() source.Info {
	return f.info
}

func (f *File) OpenRange(ctx context.Context, start, end int64) (reader io.ReadCloser, err error) {
	if start < 0 || end < start || end > f.info.Size {
		err = fmt.Errorf("%w: [%d, %d) of %d bytes", source.ErrRangeInvalid, start, end, f.info.Size)
		return
	}
	reader = io.NopCloser(io.NewSectionReader(f.file, start, end-start))
	return
}

func (f *File) Close() error {
	return f.file.Close()
}
