// Package writers holds the low-level output plumbing shared by the
// renderers: buffered output files and broken-pipe detection.
package writers
