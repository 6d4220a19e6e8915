// Package pipeline drives the whole synthesis run: selection, validation,
// layout, patching, relocation, serialization and install, in that order,
// with no re-entry into earlier stages. Any failure aborts the run; an
// aborted run never leaves vectors installed or resident memory allocated.
package pipeline
