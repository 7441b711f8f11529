package worker

import (
	stderrors "errors"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
)

// Request operations.
const (
	opInit               = "init"
	opCreateAtlas        = "createAtlas"
	opAddMesh            = "addMesh"
	opGenerateAtlas      = "generateAtlas"
	opDestroyAtlas       = "destroyAtlas"
	opSetProgressLogging = "setProgressLogging"
	opExit               = "exit"
)

// Request is one call sent to a worker process.
type Request struct {
	Op       string
	WasmPath string
	Mesh     native.MeshData
	Chart    native.ChartOptions
	Pack     native.PackOptions
	Flag     bool
}

// Response is a frame sent back by a worker process. Progress frames may
// precede the final frame of a call.
type Response struct {
	Progress *Progress
	Atlas    *native.Atlas
	Err      *Fault
}

// Progress is a streamed native progress report.
type Progress struct {
	Category native.ProgressCategory
	Value    int
}

// Fault carries an error across the process boundary.
type Fault struct {
	Phase  string
	Kind   string
	Detail string
	Cause  string
	Path   []string
}

func toFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var xe *errors.Error
	if stderrors.As(err, &xe) {
		f := &Fault{
			Phase:  string(xe.Phase),
			Kind:   string(xe.Kind),
			Detail: xe.Detail,
			Path:   xe.Path,
		}
		if xe.Cause != nil {
			f.Cause = xe.Cause.Error()
		}
		return f
	}
	return &Fault{
		Phase:  string(errors.PhaseNative),
		Kind:   string(errors.KindNativeCall),
		Detail: err.Error(),
	}
}

func (f *Fault) err() error {
	if f == nil {
		return nil
	}
	e := &errors.Error{
		Phase:  errors.Phase(f.Phase),
		Kind:   errors.Kind(f.Kind),
		Detail: f.Detail,
		Path:   f.Path,
	}
	if f.Cause != "" {
		e.Cause = stderrors.New(f.Cause)
	}
	return e
}
