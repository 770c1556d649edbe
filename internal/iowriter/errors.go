package iowriter

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/pkg/errcode"
)

// ReadError is returned when existing tags cannot be read.
func ReadError(path string, err error) error {
	return &gn.Error{
		Code: errcode.WriterReadError,
		Msg:  "Could not read existing metadata from %s",
		Vars: []any{path},
		Err:  fmt.Errorf("read tags %s: %w", path, err),
	}
}

// WriteError is returned when merged tags cannot be written back.
func WriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.WriterWriteError,
		Msg:  "Could not write metadata to %s",
		Vars: []any{path},
		Err:  fmt.Errorf("write tags %s: %w", path, err),
	}
}

// SidecarError is returned for sidecar-specific failures.
func SidecarError(path string, err error) error {
	return &gn.Error{
		Code: errcode.WriterSidecarError,
		Msg:  "Could not update sidecar %s",
		Vars: []any{path},
		Err:  fmt.Errorf("sidecar %s: %w", path, err),
	}
}

// UnsupportedFormatError is returned when the metadata backend cannot
// handle the file format.
func UnsupportedFormatError(path string) error {
	return &gn.Error{
		Code: errcode.WriterUnsupportedFormatError,
		Msg:  "File format of %s is not supported for embedded metadata",
		Vars: []any{path},
		Err:  fmt.Errorf("unsupported metadata format: %s", path),
	}
}
