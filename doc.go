// Package tsr synthesizes minimal resident driver images for 3Com packet
// drivers: instead of shipping one monolithic resident driver, a library of
// independently assembled binary modules is narrowed down at install time to
// exactly what the detected hardware needs.
//
// # Architecture Overview
//
// The pipeline runs strictly downstream, each stage consuming the previous
// stage's artifact:
//
//	hardware/   Detection-facing leaf types: CPU tiers, NIC generations,
//	            capability and platform bitsets, hardware profiles
//	modbin/     Binary module format: 64-byte module headers, patch tables,
//	            the 32-byte image header, and a module blob builder
//	registry/   Immutable module catalog, loaded from a YAML manifest plus
//	            module blobs or synthesized in memory
//	selection/  Hardware-driven module selection and validation
//	image/      Layout, hot-section copy-down, SMC patching, relocation
//	            and the final serialization barrier
//	installer/  Two-stage install: allocate, copy, verify, hook vectors
//	pipeline/   The state machine driving all of the above
//	errors/     Structured pipeline errors (stage + kind)
//	cmd/tsrgen/ CLI: build, dump, catalog generation, interactive mode
//
// # Quick Start
//
// Build and install an image for a detected configuration:
//
//	reg, err := registry.NewSynthetic()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := pipeline.Run(pipeline.Request{
//	    Registry: reg,
//	    Hardware: desc,
//	    Values:   vals,
//	    Image:    image.Config{IRQ: 5},
//	    Host:     installer.NewMemHost(0x60000),
//	    Vectors:  installer.NewMemVectors(),
//	})
package tsr
