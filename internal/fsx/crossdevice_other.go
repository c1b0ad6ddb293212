//go:build !unix

package fsx

import "errors"

// errCrossDevice never matches on non-unix builds; Move still falls back to
// the copy-then-delete path for any *os.LinkError, which covers Windows'
// equivalent "not same device" rename failure.
var errCrossDevice = errors.New("fsx: no platform-specific cross-device errno")
