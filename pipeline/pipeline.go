package pipeline

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/image"
	"github.com/jfabienke/3com-packet-driver-sub011/installer"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
	"github.com/jfabienke/3com-packet-driver-sub011/selection"
)

// State is a committed pipeline stage.
type State uint8

const (
	StateSelecting State = iota
	StateValidated
	StateLaidOut
	StatePatched
	StateRelocated
	StateSerialized
	StateInstalled
	StateAborted
)

var stateNames = map[State]string{
	StateSelecting:  "selecting",
	StateValidated:  "validated",
	StateLaidOut:    "laid-out",
	StatePatched:    "patched",
	StateRelocated:  "relocated",
	StateSerialized: "serialized",
	StateInstalled:  "installed",
	StateAborted:    "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Progress is invoked after each state commits, in order. It must not call
// back into the pipeline.
type Progress func(State)

// Request is one synthesis run's input.
type Request struct {
	Registry *registry.Registry
	Hardware hardware.Description
	// Values are the detection-derived scalars baked in by the patcher.
	Values hardware.Values
	// Image carries the IRQ line and API interrupt for the image header.
	Image image.Config

	// Host and Vectors are the install target. Leaving both nil stops the
	// run after serialization, yielding the finished image without
	// installing it.
	Host    installer.Host
	Vectors installer.VectorTable

	Progress Progress
}

// Result is the run's output. State is the last committed state; on error it
// is StateAborted and the other fields hold whatever stages completed.
type Result struct {
	State      State
	Selection  *selection.Selection
	Layout     *image.Layout
	Image      []byte
	PatchCount int
	RelocCount int
	Install    *installer.InstallResult
}

// Run executes the pipeline front to back. Stages are strictly sequential;
// the first failure aborts the run. The installer rolls its own state back,
// and no earlier stage holds host resources, so an aborted run leaves the
// host untouched.
func Run(req Request) (*Result, error) {
	res := &Result{State: StateAborted}
	commit := func(s State) {
		res.State = s
		Logger().Debug("stage committed", zap.Stringer("state", s))
		if req.Progress != nil {
			req.Progress(s)
		}
	}
	abort := func(err error) (*Result, error) {
		res.State = StateAborted
		Logger().Error("pipeline aborted", zap.Error(err))
		if req.Progress != nil {
			req.Progress(StateAborted)
		}
		return res, err
	}

	commit(StateSelecting)
	sel, err := selection.NewEngine(req.Registry).Select(req.Hardware)
	if err != nil {
		return abort(err)
	}
	res.Selection = sel
	commit(StateValidated)

	layout, err := image.Build(sel, req.Image)
	if err != nil {
		return abort(err)
	}
	res.Layout = layout
	commit(StateLaidOut)

	if res.PatchCount, err = image.ApplyPatches(layout, req.Values); err != nil {
		return abort(err)
	}
	commit(StatePatched)

	if res.RelocCount, err = image.ApplyRelocations(layout); err != nil {
		return abort(err)
	}
	commit(StateRelocated)

	if res.Image, err = image.Finalize(layout); err != nil {
		return abort(err)
	}
	commit(StateSerialized)

	if req.Host == nil {
		return res, nil
	}
	if res.Install, err = installer.Install(res.Image, req.Host, req.Vectors); err != nil {
		return abort(err)
	}
	commit(StateInstalled)
	return res, nil
}
