// Package device describes the local capabilities a capture session needs
// (camera, gallery and image editor) and provides file-backed implementations
// for headless use.
package device

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
)

var (
	// ErrCancelled is returned when the user backs out of a capability
	ErrCancelled = errors.New("cancelled by user")
	// ErrPermissionDenied is returned when access to a capability was refused
	ErrPermissionDenied = errors.New("permission denied")
)

// Camera captures one photo. Capture returns ErrCancelled if the user backs
// out without taking a picture.
type Camera interface {
	RequestPermission(ctx context.Context) (bool, error)
	Capture(ctx context.Context) (string, error)
}

// Asset is a temporary gallery entry handed to an editor
type Asset struct {
	ID  string
	URI string
}

// Gallery manages temporary assets for the image editor
type Gallery interface {
	RequestWritePermission(ctx context.Context) (bool, error)
	CreateTempAsset(ctx context.Context, uri string) (Asset, error)
	DeleteAsset(ctx context.Context, asset Asset) error
}

// Editor lets the user adjust an image. It returns the URI of the edited
// result, or ErrCancelled.
type Editor interface {
	Edit(ctx context.Context, uri string, aspect geometry.Aspect) (string, error)
}
