// Package workers provides helpers for sizing worker pools in containerized
// environments.
//
// runtime.NumCPU reports the host CPU count even under cgroup limits, while
// GOMAXPROCS reflects the container CPU limit in Go 1.19+. These helpers use
// GOMAXPROCS so worker pools respect container resource limits, with an
// optional SCAN_WORKERS environment override for operators.
package workers
