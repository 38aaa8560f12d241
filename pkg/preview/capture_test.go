package preview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact/memstore"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/runtime"
)

type explosive struct{}

func (explosive) String() string { panic("boom") }

type failingStore struct{}

func (failingStore) Put(context.Context, api.ArtifactKind, string, []byte) error {
	return errors.New(strings.Repeat("disk full ", 100))
}

func (failingStore) Get(context.Context, api.ArtifactKind, string) ([]byte, error) {
	return nil, errors.New("unavailable")
}

func (failingStore) HealthCheck(context.Context) error { return nil }

func runNamespace(t *testing.T, code string, setup func(ns *runtime.Namespace)) *runtime.Namespace {
	t.Helper()
	ns := runtime.NewNamespace(goja.New())
	if setup != nil {
		setup(ns)
	}
	res := runtime.NewHarness().Run(t.Context(), code, ns, time.Second)
	if res.Status != api.StatusSuccess {
		t.Fatalf("run failed: %s", res.Stderr)
	}
	return ns
}

func withTable(ns *runtime.Namespace) {
	_ = ns.Set("makeTable", func() *frame.Table {
		return frame.New([]string{"one"}, [][]any{{int64(1)}})
	})
}

func TestCaptureExcludesInjectedPrivateAndCallables(t *testing.T) {
	ns := runNamespace(t, `
var x = 1;
let y = "two";
_private = 3;
function helper() {}
const arrow = () => 4;
`, func(ns *runtime.Namespace) { _ = ns.Set("injected", 5) })

	objects, datasets := NewCapturer(memstore.New(100)).Capture(t.Context(), ns)
	if len(objects) != 2 {
		t.Fatalf("objects = %v, want x and y", objects)
	}
	if objects["x"].Value != int64(1) || objects["y"].Value != "two" {
		t.Errorf("objects = %+v", objects)
	}
	if len(datasets) != 0 {
		t.Errorf("datasets = %v", datasets)
	}
}

func TestCapturePersistsTables(t *testing.T) {
	store := memstore.New(100)
	ns := runNamespace(t, `df = makeTable(); n = 1`, withTable)

	objects, datasets := NewCapturer(store).Capture(t.Context(), ns)
	if len(datasets) != 1 {
		t.Fatalf("datasets = %v, want 1", datasets)
	}
	p := objects["df"]
	if p.Kind != api.PreviewTable || p.Table.Rows != 1 {
		t.Fatalf("df preview = %+v", p)
	}
	if p.Table.File != datasets[0].URL {
		t.Errorf("File = %q, want %q", p.Table.File, datasets[0].URL)
	}
	data, err := store.Get(t.Context(), api.ArtifactDataset, datasets[0].ID)
	if err != nil {
		t.Fatalf("dataset not persisted: %v", err)
	}
	if string(data) != "one\n1\n" {
		t.Errorf("csv = %q", data)
	}
}

func TestCaptureRecordsFileError(t *testing.T) {
	ns := runNamespace(t, `df = makeTable()`, withTable)

	objects, datasets := NewCapturer(failingStore{}).Capture(t.Context(), ns)
	if len(datasets) != 0 {
		t.Errorf("datasets = %v", datasets)
	}
	p := objects["df"]
	if p.Table.File != "" {
		t.Errorf("File = %q", p.Table.File)
	}
	if p.Table.FileError == "" || len(p.Table.FileError) > MaxReprLength {
		t.Errorf("FileError length = %d", len(p.Table.FileError))
	}
}

func TestCaptureIsolatesFailingBinding(t *testing.T) {
	ns := runNamespace(t, `bad = boom; good = [1, 2]`, func(ns *runtime.Namespace) {
		_ = ns.Set("boom", explosive{})
	})

	objects, _ := NewCapturer(memstore.New(100)).Capture(t.Context(), ns)
	if got := objects["bad"].JSONValue(); got != "<Error capturing object: boom>" {
		t.Errorf("bad = %v", got)
	}
	if got := objects["good"]; got.Kind != api.PreviewSequence || len(got.Items) != 2 {
		t.Errorf("good = %+v", got)
	}
}

func TestCaptureThrowingGlobalGetter(t *testing.T) {
	ns := runNamespace(t, `
Object.defineProperty(globalThis, "boom", {enumerable: true, get() { throw new Error("nope") }});
x = 1;
`, nil)

	objects, _ := NewCapturer(memstore.New(100)).Capture(t.Context(), ns)
	if got := objects["boom"].JSONValue(); got != "<Error capturing object: Error: nope>" {
		t.Errorf("boom = %v", got)
	}
	if objects["x"].Value != int64(1) {
		t.Errorf("x = %+v", objects["x"])
	}
}

func TestCaptureInterruptsLoopingGetter(t *testing.T) {
	ns := runNamespace(t, `var x = { get a() { while (true) {} } }; var y = 2;`, nil)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	done := make(chan map[string]api.Preview, 1)
	go func() {
		objects, _ := NewCapturer(memstore.New(100)).Capture(ctx, ns)
		done <- objects
	}()

	select {
	case objects := <-done:
		got, _ := objects["x"].JSONValue().(string)
		if !strings.HasPrefix(got, "<Error capturing object: ") {
			t.Errorf("x = %v, want an error placeholder", objects["x"].JSONValue())
		}
		if _, ok := objects["y"]; !ok {
			t.Errorf("y missing from %v", objects)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not stop at its deadline")
	}

	if v, err := ns.VM.RunString("1 + 1"); err != nil || v.ToInteger() != 2 {
		t.Errorf("runtime unusable after capture: %v, %v", v, err)
	}
}
