package worker

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/native"
	"github.com/wippyai/xatlas-go/nativetest"
)

func triangle(id string) native.MeshData {
	return native.MeshData{
		ID:        id,
		Indices:   []uint16{0, 1, 2},
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Scale:     1,
	}
}

// pipeProcess wires a Process to a Serve loop running in this process.
func pipeProcess(t *testing.T, mod native.Module) *Process {
	t.Helper()
	p := NewProcess()
	p.launch = func(ctx context.Context, opts native.LoadOptions) (*conn, error) {
		reqR, reqW := io.Pipe()
		respR, respW := io.Pipe()

		done := make(chan error, 1)
		go func() {
			err := Serve(context.Background(), reqR, respW, mod, ServeOptions{})
			respW.Close()
			done <- err
		}()

		var once sync.Once
		var serveErr error
		return &conn{
			r: respR,
			w: reqW,
			wait: func() error {
				once.Do(func() { serveErr = <-done })
				return serveErr
			},
			kill: func() error {
				killed := stderrors.New("killed")
				reqR.CloseWithError(killed)
				respR.CloseWithError(killed)
				return nil
			},
		}, nil
	}
	return p
}

func TestProcess_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mod := nativetest.New()
	p := pipeProcess(t, mod)

	loads := 0
	opts := native.LoadOptions{WorkerPath: "xatlas-worker", OnLoad: func() { loads++ }}
	if err := p.Init(ctx, opts); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Init(ctx, opts); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if loads != 1 || !p.Loaded() {
		t.Errorf("loads=%d loaded=%v, want 1 true", loads, p.Loaded())
	}

	if err := p.CreateAtlas(ctx); err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}
	if err := p.AddMesh(ctx, triangle("a")); err != nil {
		t.Fatalf("AddMesh: %v", err)
	}
	atlas, err := p.GenerateAtlas(ctx, native.DefaultChartOptions(), native.DefaultPackOptions(), true)
	if err != nil {
		t.Fatalf("GenerateAtlas: %v", err)
	}
	if len(atlas.Meshes) != 1 || atlas.Meshes[0].ID != "a" || len(atlas.Meshes[0].OldIndexes) != 3 {
		t.Errorf("unexpected atlas: %+v", atlas)
	}
	if err := p.DestroyAtlas(ctx); err != nil {
		t.Fatalf("DestroyAtlas: %v", err)
	}

	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	ops := mod.Ops()
	if ops[len(ops)-1] != nativetest.OpClose {
		t.Errorf("module was not closed: %v", ops)
	}
	if err := p.CreateAtlas(ctx); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindClosed}) {
		t.Errorf("CreateAtlas after Close: got %v", err)
	}
}

func TestProcess_ErrorsKeepKind(t *testing.T) {
	ctx := context.Background()
	p := pipeProcess(t, nativetest.New())
	defer p.Close(ctx)

	if err := p.Init(ctx, native.LoadOptions{WorkerPath: "w"}); err != nil {
		t.Fatal(err)
	}
	err := p.AddMesh(ctx, triangle("a"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSession, Kind: errors.KindInvalidState}) {
		t.Errorf("got %v, want session invalid_state", err)
	}
	if !p.Loaded() {
		t.Error("remote errors must not break the stream")
	}
}

func TestProcess_Progress(t *testing.T) {
	ctx := context.Background()
	p := pipeProcess(t, nativetest.New())
	defer p.Close(ctx)

	var seen []native.ProgressCategory
	err := p.Init(ctx, native.LoadOptions{
		WorkerPath: "w",
		OnProgress: func(c native.ProgressCategory, _ int) { seen = append(seen, c) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetProgressLogging(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := p.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.AddMesh(ctx, triangle("a")); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != native.ProgressAddMesh {
		t.Errorf("progress = %v, want [AddMesh]", seen)
	}
}

func TestProcess_MissingWorkerPath(t *testing.T) {
	p := NewProcess()
	err := p.Init(context.Background(), native.LoadOptions{WasmPath: "xatlas.wasm"})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindInvalidInput}) {
		t.Errorf("got %v, want invalid input", err)
	}
}

func TestProcess_NotInitialized(t *testing.T) {
	p := NewProcess()
	err := p.CreateAtlas(context.Background())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindNotInitialized}) {
		t.Errorf("got %v, want not initialized", err)
	}
}

func TestProcess_CancelKillsWorker(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	mod := nativetest.New(nativetest.WithGenerateHook(func(context.Context) error {
		close(entered)
		<-release
		return nil
	}))
	p := pipeProcess(t, mod)

	ctx := context.Background()
	if err := p.Init(ctx, native.LoadOptions{WorkerPath: "w"}); err != nil {
		t.Fatal(err)
	}
	if err := p.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		<-entered
		cancel()
	}()
	_, err := p.GenerateAtlas(cctx, native.ChartOptions{}, native.PackOptions{}, true)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	close(release)

	if p.Loaded() {
		t.Error("killed worker should not report loaded")
	}
	if err := p.DestroyAtlas(ctx); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindClosed}) {
		t.Errorf("DestroyAtlas after kill: got %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Errorf("Close after kill: %v", err)
	}
}

func TestThread(t *testing.T) {
	ctx := context.Background()
	mod := nativetest.New()
	th := NewThread(mod)

	if th.Loaded() {
		t.Fatal("thread should not be loaded before Init")
	}
	if err := th.Init(ctx, native.LoadOptions{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !th.Loaded() {
		t.Fatal("thread should be loaded")
	}

	if err := th.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := th.AddMesh(ctx, triangle(id)); err != nil {
				t.Errorf("AddMesh(%s): %v", id, err)
			}
		}()
	}
	wg.Wait()

	atlas, err := th.GenerateAtlas(ctx, native.ChartOptions{}, native.PackOptions{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if atlas.MeshCount != 3 {
		t.Errorf("MeshCount = %d, want 3", atlas.MeshCount)
	}
	if err := th.DestroyAtlas(ctx); err != nil {
		t.Fatal(err)
	}

	if err := th.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := th.CreateAtlas(ctx); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindClosed}) {
		t.Errorf("CreateAtlas after Close: got %v", err)
	}
}

func TestThread_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	mod := nativetest.New(nativetest.WithGenerateHook(func(context.Context) error {
		<-release
		return nil
	}))
	th := NewThread(mod)
	defer th.Close(context.Background())
	defer close(release)

	ctx := context.Background()
	if err := th.Init(ctx, native.LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := th.CreateAtlas(ctx); err != nil {
		t.Fatal(err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := th.GenerateAtlas(cctx, native.ChartOptions{}, native.PackOptions{}, true); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestFault_RoundTrip(t *testing.T) {
	orig := errors.New(errors.PhaseNative, errors.KindInvalidData).
		Path("mesh", "index").
		Detail("bad index").
		Cause(io.ErrUnexpectedEOF).
		Build()

	got := toFault(orig).err()
	if !stderrors.Is(got, orig) {
		t.Errorf("got %v, want phase/kind of %v", got, orig)
	}
	if got.Error() != orig.Error() {
		t.Errorf("message = %q, want %q", got.Error(), orig.Error())
	}

	plain := toFault(stderrors.New("plain")).err()
	if !stderrors.Is(plain, &errors.Error{Phase: errors.PhaseNative, Kind: errors.KindNativeCall}) {
		t.Errorf("plain error = %v", plain)
	}
	if toFault(nil) != nil {
		t.Error("nil error should have no fault")
	}
}
