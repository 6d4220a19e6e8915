// Package image turns a validated module selection into a finished resident
// image. It computes the layout and copies each module's hot section into a
// flat buffer, bakes detected hardware values and CPU-tuned code variants
// into the copied bytes, resolves cross-module references, and seals the
// result for handoff to the installer.
//
// The stages are strictly ordered: Build, ApplyPatches, ApplyRelocations,
// Finalize. Relocations run after patches because patch writes may overwrite
// bytes a relocation site shares a slot with; Finalize runs last and models
// the prefetch-queue barrier the resident loader issues on real hardware.
package image
