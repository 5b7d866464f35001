//go:build !windows

package nativelog

// POSIX O_APPEND writes interleave safely across processes, so only the
// in-process writer mutex is needed here.
func withProcessLogLock(fn func() error) error {
	return fn()
}
