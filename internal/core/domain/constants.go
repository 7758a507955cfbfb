package domain

import "errors"

var (
	ErrNotFound           = errors.New("image not found")
	ErrInvalidCredentials = errors.New("bad username or password")
	ErrEmptyUpload        = errors.New("no image data")
)
