//go:build linux

package main

import "golang.org/x/sys/unix"

// hostThreadID returns the real OS thread id of the calling goroutine.
// Callers that need a stable id across multiple calls must first pin
// the goroutine with runtime.LockOSThread, exactly as StartThreads
// does for each core-driving goroutine.
func hostThreadID() uint64 {
	return uint64(unix.Gettid())
}
