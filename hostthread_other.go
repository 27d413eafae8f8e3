//go:build !linux

package main

// hostThreadID has no portable equivalent to Gettid outside Linux in
// the standard library or this project's dependency set. Only
// multi-core mode's ThreadToCoreMap calls this (StartThreads and the
// per-core helper goroutines both check UseMultiCore first); on other
// platforms run with use_multi_core=false, which never reaches here.
func hostThreadID() uint64 {
	panic("quadcore: multi-core mode's host-thread lookup requires linux; set use_multi_core=false on this platform")
}
