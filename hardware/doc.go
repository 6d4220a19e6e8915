// Package hardware defines the hardware description consumed by module
// selection and the scalar values baked into the resident image by the
// patcher.
//
// The types here are produced by the external detection subsystem (CPU,
// chipset and NIC probing) and are read-only inputs to the build pipeline.
// Nothing in this package performs any hardware access.
package hardware
