// Package catalog defines the collaborator that records finished
// uploads as file entries. The catalog itself (folders, listings,
// search) lives outside this module; the coordinator only notifies it
// once a remote object exists.
package catalog

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock/catalog.go -package=mock_catalog . Catalog

// Entry describes one finished object. An Entry is only ever created
// after the remote finalize succeeded, so ObjectID is always valid.
type Entry struct {
	// Name is the file name shown to users
	Name string `json:"name"`

	// Size is the object size in bytes
	Size int64 `json:"size"`

	// ContentType is the declared media type
	ContentType string `json:"contentType"`

	// FolderID is the owning folder, empty for the root folder
	FolderID string `json:"folderId,omitempty"`

	// Owner is the acting principal the upload was scoped to
	Owner string `json:"owner"`

	// ObjectID is the remote object identifier returned by finalize
	ObjectID string `json:"objectId"`

	// CompletedAt is the instant the upload finished
	CompletedAt time.Time `json:"completedAt"`
}

// Catalog registers finished objects.
type Catalog interface {
	// RegisterObject records the entry. Registration is not
	// transactional with the remote finalize; a crash between the two
	// leaves a finished object with no entry.
	RegisterObject(ctx context.Context, entry Entry) error
}
