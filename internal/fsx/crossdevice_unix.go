//go:build unix

package fsx

import "golang.org/x/sys/unix"

// errCrossDevice is compared via errors.Is against the *os.LinkError's
// wrapped syscall errno to detect a rename that failed only because src and
// dst live on different filesystems.
var errCrossDevice error = unix.EXDEV
