package config

import "errors"

// Configuration-kind errors (spec.md §7).
var (
	ErrHashMismatch            = errors.New("configuration: hash mismatch")
	ErrUnsupportedSignerScheme = errors.New("configuration: unsupported signer scheme")
	ErrMerkleDepthTooSmall     = errors.New("configuration: merkle depth too small")
	ErrRangeWidthOutOfBounds   = errors.New("configuration: range width out of bounds")
)
