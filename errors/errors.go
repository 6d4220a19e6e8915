package errors

import (
	"fmt"
	"strings"
)

// Stage indicates where in the pipeline the error occurred.
type Stage string

const (
	StageRegistry Stage = "registry" // catalog initialization
	StageSelect   Stage = "select"   // hardware-driven module selection
	StageValidate Stage = "validate" // selection validation
	StageBuild    Stage = "build"    // layout and hot-section copy
	StagePatch    Stage = "patch"    // SMC patch application
	StageReloc    Stage = "reloc"    // cross-module relocation
	StageInstall  Stage = "install"  // resident install
)

// Kind categorizes the failure.
type Kind string

const (
	KindUnsupportedHardware Kind = "unsupported_hardware"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindValidationFailed    Kind = "validation_failed"
	KindPatchFailed         Kind = "patch_failed"
	KindRelocationFailed    Kind = "relocation_failed"
	KindImageHeaderInvalid  Kind = "image_header_invalid"
	KindAllocationFailed    Kind = "allocation_failed"
	KindBadModule           Kind = "bad_module"
	KindInternal            Kind = "internal"
)

// Error is the structured error type used throughout the pipeline.
type Error struct {
	Cause    error
	Stage    Stage
	Kind     Kind
	ModuleID string
	Detail   string
	Offset   int // byte offset in module or image; -1 when not applicable
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Stage))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ModuleID != "" {
		b.WriteString(" module ")
		b.WriteString(e.ModuleID)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at 0x%04x", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two structured errors match
// on Stage and Kind; sentinel matching on Kind alone uses KindOf.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Stage == t.Stage && e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from any error in the chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(stage Stage, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Stage:  stage,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Module records the module the error concerns.
func (b *Builder) Module(id string) *Builder {
	b.err.ModuleID = id
	return b
}

// Offset records the byte offset the error concerns.
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the common failures.

// UnsupportedHardware reports that no module matches the detected hardware.
func UnsupportedHardware(stage Stage, detail string, args ...any) *Error {
	return New(stage, KindUnsupportedHardware).Detail(detail, args...).Build()
}

// ValidationFailed reports a selection that violates a hardware requirement
// or leaves a mandatory category unfilled.
func ValidationFailed(moduleID, detail string, args ...any) *Error {
	return New(StageValidate, KindValidationFailed).Module(moduleID).Detail(detail, args...).Build()
}

// PatchFailed reports a patch site that could not be applied.
func PatchFailed(moduleID string, offset int, detail string, args ...any) *Error {
	return New(StagePatch, KindPatchFailed).Module(moduleID).Offset(offset).Detail(detail, args...).Build()
}

// RelocationFailed reports a relocation whose target falls outside the image.
func RelocationFailed(moduleID string, offset int, detail string, args ...any) *Error {
	return New(StageReloc, KindRelocationFailed).Module(moduleID).Offset(offset).Detail(detail, args...).Build()
}

// AllocationFailed reports a resident memory request denied by the host.
func AllocationFailed(size int, cause error) *Error {
	return New(StageInstall, KindAllocationFailed).
		Detail("resident allocation of %d bytes denied", size).
		Cause(cause).Build()
}
