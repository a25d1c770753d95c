//go:build !linux

package blocking

// threadID falls back to the worker sequence number where the kernel thread id is not
// exposed through x/sys.
func threadID(workerID uint64) uint64 {
	return workerID
}
