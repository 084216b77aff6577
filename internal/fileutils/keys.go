package fileutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SplitName splits a file name into its base name and extension, the
// extension returned without the leading dot.
func SplitName(name string) (base, ext string, err error) {
	if name = strings.TrimSpace(name); name == "" {
		err = errors.New("file name is required")
		return
	}
	base = filepath.Base(name)
	ext = strings.TrimPrefix(filepath.Ext(base), ".")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return
}

// BuildObjectKey derives the destination object key for an upload. Keys
// are scoped under the acting principal, disambiguated with a random
// component so two uploads of the same name never collide.
func BuildObjectKey(principal, name string) (key string, err error) {
	var base, ext string
	if base, ext, err = SplitName(name); err != nil {
		return
	}
	base = sanitizeKeyPart(base)
	if principal = sanitizeKeyPart(principal); principal == "" {
		principal = "anonymous"
	}
	if ext == "" {
		key = fmt.Sprintf("%s/%s/%s", principal, uuid.NewString(), base)
		return
	}
	key = fmt.Sprintf("%s/%s/%s.%s", principal, uuid.NewString(), base, ext)
	return
}

// sanitizeKeyPart strips characters the store treats as path structure.
func sanitizeKeyPart(part string) string {
	part = strings.TrimSpace(part)
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", "#", "-", "?", "-")
	return replacer.Replace(part)
}
