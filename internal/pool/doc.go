// Package pool runs chunk tasks on a fixed set of local goroutines and
// gathers their partials. Workers share nothing: each task opens its own
// read-only file handle, and tasks never overlap.
package pool
