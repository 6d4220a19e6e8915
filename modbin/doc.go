// Package modbin implements the binary module format shared by the build
// pipeline and the compiled driver modules.
//
// Every module blob starts with a 64-byte header (paragraph aligned)
// describing its hot and cold byte ranges, its patch table, and its hardware
// requirements. The patch table holds both self-modifying-code patch sites and
// relocation entries; both use the same fixed wire layout.
//
// All structures serialize with an explicit little-endian layer so that the
// tool emits identical bytes on every build host. Native struct layout is
// never relied on.
//
// # Module layout
//
//	offset 0              ModuleHeader (64 bytes)
//	[hot_start, hot_end)  hot section: copied into the resident image
//	[cold_start, cold_end) cold section: one-time setup, never copied
//	patch_table_offset    PatchCount entries, usually inside the cold range
//
// # Patch entries
//
// A legacy entry is 29 bytes: site offset, kind, declared site size, then
// five 5-byte candidate sequences, one per CPU tier (8086, 286, 386, 486,
// Pentium). An enhanced entry (header version 2) is 46 bytes: it inserts a
// safety_flags/reserved pair after the site size and carries eight candidate
// slots, the last three gated by DMA-policy safety requirements.
//
// Scalar kinds (imm8, imm16, I/O, memory-copy) do not use candidates for
// code; slot 0 byte 0 is a tag byte naming the hardware field to bake in.
package modbin
