package format

import "errors"

// ErrMisaligned indicates a node address violated its alignment.
var ErrMisaligned = errors.New("format: misaligned node")
