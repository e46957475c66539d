package image

import "errors"

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("only image files are allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrNotFound        = errors.New("image not found")
	ErrStore           = errors.New("image metadata store failure")
	ErrFilesystem      = errors.New("failed to write uploaded file")
)
