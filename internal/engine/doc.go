// Package engine turns one chunk of a FASTQ file into a phred.Partial. It
// never imports app, cli, or any backend; keep it domain-only.
//
// Backends depend on the Processor shape only (see internal/backend), so
// tests can swap the engine for a fake.
package engine
