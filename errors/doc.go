// Package errors provides the structured error type used by the build
// pipeline.
//
// Errors are categorized by Stage (which pipeline stage failed) and Kind
// (the failure taxonomy). Every kind is fatal: the pipeline aborts, releases
// anything it allocated, and installs nothing. Retries, where they make sense
// at all, belong to the hardware-detection layer, not to this engine.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.StagePatch, errors.KindPatchFailed).
//		Module("mod_dma_busmaster").
//		Offset(0x012A).
//		Detail("no eligible variant for cpu tier %s", tier).
//		Build()
//
// All errors support errors.Is/As; two errors match when Stage and Kind agree.
package errors
