package mpxfer

import (
	"context"

	"github.com/derektruong/mpxfer/source"
	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// AddCommand describes a file to enqueue for upload. The payload's
// metadata is captured from File.Info() at enqueue time and is
// immutable for the task's lifetime.
type AddCommand struct {
	// File supplies the payload bytes, see source.File
	File source.File `json:"-" validate:"required"`

	// FolderID is the catalog folder the finished object registers
	// under; empty means the root folder
	FolderID string `json:"folderId"`
}

func (cmd AddCommand) Validate(ctx context.Context) error {
	return validate.StructCtx(ctx, cmd)
}
