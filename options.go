package mpxfer

import (
	"regexp"
	"time"

	"github.com/derektruong/mpxfer/catalog"
)

const (
	defaultMaxFileSize          = 5 << 40 // 5 TB
	defaultMinFileSize          = 0
	defaultPartSize             = 5 * 1024 * 1024 // 5 MB, the S3 minimum
	defaultMaxConcurrentUploads = 3
	defaultPrefetchWindow       = 3
	defaultMaxRetryAttempts     = 3
	defaultInitialDelay         = 1 * time.Second
	defaultMaxDelay             = 30 * time.Second
)

type Option func(*manager)

// WithMaxConcurrentUploads bounds how many tasks hold admission slots
// at once. Default is 3.
func WithMaxConcurrentUploads(limit int) Option {
	if limit <= 0 {
		limit = defaultMaxConcurrentUploads
	}
	return func(m *manager) {
		m.maxConcurrentUploads = limit
	}
}

// WithPartSize sets the fixed part size in bytes. Values below the S3
// minimum of 5 MB are raised to it.
func WithPartSize(size int64) Option {
	if size < defaultPartSize {
		size = defaultPartSize
	}
	return func(m *manager) {
		m.partSize = size
	}
}

// WithPrefetchWindow sets how many upcoming parts have their
// authorizations warmed while the current part transfers. Default is 3.
func WithPrefetchWindow(window int32) Option {
	if window <= 0 {
		window = defaultPrefetchWindow
	}
	return func(m *manager) {
		m.prefetchWindow = window
	}
}

// WithMaxFileSize sets the maximum file size allowed for upload.
// Default is 5 TB.
func WithMaxFileSize(size int64) Option {
	if size <= 0 {
		size = defaultMaxFileSize
	}
	return func(m *manager) {
		m.fileRule.MaxFileSize = size
	}
}

// WithMinFileSize sets the minimum file size required for upload.
// Default is 0 (no limit).
func WithMinFileSize(size int64) Option {
	if size <= 0 {
		size = defaultMinFileSize
	}
	return func(m *manager) {
		m.fileRule.MinFileSize = size
	}
}

// WithExtensionWhitelist sets the list of allowed file extensions.
// Default is empty (no restriction).
func WithExtensionWhitelist(extensions ...string) Option {
	return func(m *manager) {
		m.fileRule.ExtensionWhitelist = extensions
	}
}

// WithExtensionBlacklist sets the list of blocked file extensions.
// Default is empty (no restriction).
func WithExtensionBlacklist(extensions ...string) Option {
	return func(m *manager) {
		m.fileRule.ExtensionBlacklist = extensions
	}
}

// WithContentTypeWhitelist sets the list of allowed content types.
// Default is empty (no restriction).
func WithContentTypeWhitelist(contentTypes ...string) Option {
	return func(m *manager) {
		m.fileRule.ContentTypeWhitelist = contentTypes
	}
}

// WithFileNamePattern sets the regular expression pattern file names
// must match. Default is nil (no restriction).
func WithFileNamePattern(pattern *regexp.Regexp) Option {
	return func(m *manager) {
		m.fileRule.FileNamePattern = pattern
	}
}

// RetryConfig defines the per-part retry policy.
type RetryConfig struct {
	// MaxRetryAttempts is the number of attempts per part, default = 3.
	MaxRetryAttempts int
	// InitialDelay is the delay before the first retry, default = 1 second.
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries, default = 30 seconds.
	MaxDelay time.Duration
}

// WithRetryConfig sets the per-part retry policy. Supports partial
// configuration, default values are used for unset fields.
func WithRetryConfig(config RetryConfig) Option {
	if config.MaxRetryAttempts <= 0 {
		config.MaxRetryAttempts = defaultMaxRetryAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaultInitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaultMaxDelay
	}
	return func(m *manager) {
		m.retryConfig = config
	}
}

// WithIdentity sets the provider of the acting principal. Uploads fail
// fast with ErrUnauthorized when the provider yields no principal.
func WithIdentity(provider IdentityProvider) Option {
	return func(m *manager) {
		if provider != nil {
			m.identity = provider
		}
	}
}

// WithCatalog sets the catalog collaborator notified when an upload
// completes. Default is none (no registration).
func WithCatalog(cat catalog.Catalog) Option {
	return func(m *manager) {
		m.catalog = cat
	}
}
