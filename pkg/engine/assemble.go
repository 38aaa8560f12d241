package engine

import (
	"time"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/runtime"
)

// Assemble merges a raw run result and its captures into the report. It is
// a pure merge: the status passes through unchanged, the elapsed time is
// always set and every collection is non-nil.
func Assemble(raw *runtime.RawRunResult, images []api.Artifact, objects map[string]api.Preview, datasets []api.Artifact, elapsed time.Duration) *api.ExecutionReport {
	if images == nil {
		images = []api.Artifact{}
	}
	if objects == nil {
		objects = map[string]api.Preview{}
	}
	if datasets == nil {
		datasets = []api.Artifact{}
	}
	return &api.ExecutionReport{
		Status:        raw.Status,
		Output:        raw.Stdout,
		Errors:        raw.Stderr,
		Images:        images,
		Objects:       objects,
		Files:         datasets,
		ExecutionTime: elapsed.Seconds(),
	}
}
