//go:build linux

package blocking

import "golang.org/x/sys/unix"

// threadID returns the kernel thread id of the calling goroutine's OS thread.
// The caller must be locked to its thread.
func threadID(uint64) uint64 {
	return uint64(unix.Gettid())
}
