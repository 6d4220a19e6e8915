// Package installer performs the resident half of the two-stage install:
// allocate a resident block, copy the finished image into it, verify the
// copied header, and only then point interrupt vectors at the new code.
//
// The host OS primitives (memory allocation, the interrupt vector table) are
// interfaces; MemHost and MemVectors are the in-memory implementations used
// by tests and the CLI dry-run.
package installer
