package mpxfer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/derektruong/mpxfer/source"
	"github.com/samber/lo"
)

var (
	ErrMaxFileSizeExceeded = func(required, got int64) error {
		return fmt.Errorf("file size exceeds the maximum allowed size: %d > %d bytes", got, required)
	}
	ErrMinFileSizeNotMet = func(required, got int64) error {
		return fmt.Errorf("file size does not meet the minimum required size: %d < %d bytes", got, required)
	}
	ErrExtensionNotAllowed = func(ext string) error {
		return fmt.Errorf("file extension is not allowed: %s", ext)
	}
	ErrExtensionBlocked = func(ext string) error {
		return fmt.Errorf("file extension is blocked: %s", ext)
	}
	ErrContentTypeNotAllowed = func(contentType string) error {
		return fmt.Errorf("content type is not allowed: %s", contentType)
	}
	ErrFileNamePatternMismatch = func(pattern string) error {
		return fmt.Errorf("file name does not match the required pattern: %s", pattern)
	}
)

// fileRule defines the validation policy enforced before a task is
// created. Policy values come from configuration; the manager only
// enforces them.
type fileRule struct {
	// MaxFileSize allows setting a maximum file size for upload.
	MaxFileSize int64
	// MinFileSize allows setting a minimum file size for upload.
	MinFileSize int64
	// ExtensionWhitelist allows setting a list of allowed file extensions.
	ExtensionWhitelist []string
	// ExtensionBlacklist allows setting a list of blocked file extensions.
	ExtensionBlacklist []string
	// ContentTypeWhitelist allows setting a list of allowed content types.
	ContentTypeWhitelist []string
	// FileNamePattern allows setting a regular expression pattern for file names.
	FileNamePattern *regexp.Regexp
}

func (r *fileRule) Check(info source.Info) (err error) {
	// check file size
	if r.MaxFileSize > 0 && info.Size > r.MaxFileSize {
		return ErrMaxFileSizeExceeded(r.MaxFileSize, info.Size)
	}
	if r.MinFileSize > 0 && info.Size < r.MinFileSize {
		return ErrMinFileSizeNotMet(r.MinFileSize, info.Size)
	}

	// check file extension
	ext := extensionOf(info.Name)
	if len(r.ExtensionWhitelist) > 0 && !containsFold(r.ExtensionWhitelist, ext) {
		return ErrExtensionNotAllowed(ext)
	}
	if len(r.ExtensionBlacklist) > 0 && containsFold(r.ExtensionBlacklist, ext) {
		return ErrExtensionBlocked(ext)
	}

	// check content type
	if len(r.ContentTypeWhitelist) > 0 &&
		!containsFold(r.ContentTypeWhitelist, baseContentType(info.ContentType)) {
		return ErrContentTypeNotAllowed(info.ContentType)
	}

	// check file name pattern
	if r.FileNamePattern != nil && !r.FileNamePattern.MatchString(info.Name) {
		return ErrFileNamePatternMismatch(r.FileNamePattern.String())
	}
	return
}

func extensionOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}

// baseContentType drops media type parameters such as charset.
func baseContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(base)
}

func containsFold(list []string, item string) bool {
	return lo.ContainsBy(list, func(entry string) bool {
		return strings.EqualFold(entry, item)
	})
}
