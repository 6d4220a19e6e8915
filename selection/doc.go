// Package selection chooses which driver modules go into the resident image
// for a given hardware description.
//
// Selection runs in fixed sub-steps: the always-resident core set, then
// exactly one NIC module by generation match, then the DMA strategy by strict
// precedence (descriptor ring, bus master, ISA DMA, programmed-I/O fallback),
// then exactly one cache-coherency module and one CPU-tuned copy routine.
// Selecting a module twice is a no-op, never a duplicate.
//
// Validate checks the finished selection against the hardware description:
// no selected module may require a newer CPU than detected, and the NIC, DMA,
// cache and copy categories must each be filled.
package selection
