package image

import "github.com/jfabienke/3com-packet-driver-sub011/errors"

// Finalize seals the image. On real hardware the resident loader must flush
// the instruction-prefetch queue before any self-modified byte executes;
// here the equivalent barrier is taking an immutable copy of the buffer and
// refusing further mutation. The first call seals; repeat calls return the
// same bytes.
func Finalize(l *Layout) ([]byte, error) {
	if l.stage == stageSealed {
		return l.sealed, nil
	}
	if l.stage != stageRelocated {
		return nil, errors.New(errors.StageBuild, errors.KindInternal).
			Detail("finalize on %s image", stageNames[l.stage]).Build()
	}
	l.sealed = append([]byte(nil), l.buf...)
	l.stage = stageSealed
	return l.sealed, nil
}

// Sealed reports whether Finalize has run.
func (l *Layout) Sealed() bool {
	return l.stage == stageSealed
}
