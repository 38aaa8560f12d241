package api

import "encoding/json"

// RunRequest is the request body for POST /run.
type RunRequest struct {
	// Code is the snippet to execute. Blank code is rejected before execution.
	Code string `json:"code"`

	// Database names the warehouse target the bound query capability runs against.
	Database string `json:"database"`

	// QueryTarget is accepted as an alias for Database.
	QueryTarget string `json:"query_target,omitempty"`
}

// Target returns the query target, preferring Database over QueryTarget.
func (r *RunRequest) Target() string {
	if r.Database != "" {
		return r.Database
	}
	return r.QueryTarget
}

// Status classifies the outcome of one submission.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// ArtifactKind distinguishes rendered figures from persisted datasets.
type ArtifactKind string

const (
	ArtifactImage   ArtifactKind = "image"
	ArtifactDataset ArtifactKind = "dataset"
)

// Extension returns the file extension used when persisting the kind.
func (k ArtifactKind) Extension() string {
	if k == ArtifactImage {
		return ".png"
	}
	return ".csv"
}

// ContentType returns the MIME type served for the kind.
func (k ArtifactKind) ContentType() string {
	if k == ArtifactImage {
		return "image/png"
	}
	return "text/csv"
}

// Artifact is a persisted byproduct of a run, addressable by URL.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`
	ID   string       `json:"id"`
	URL  string       `json:"url"`
}

// ArtifactURL returns the retrieval path for an artifact of the given kind.
func ArtifactURL(kind ArtifactKind, id string) string {
	if kind == ArtifactImage {
		return "/images/temp/" + id + ".png"
	}
	return "/files/temp/" + id + ".csv"
}

// NewArtifact builds an Artifact with its retrieval URL filled in.
func NewArtifact(kind ArtifactKind, id string) Artifact {
	return Artifact{Kind: kind, ID: id, URL: ArtifactURL(kind, id)}
}

// ExecutionReport is the bounded, structured result of one submission.
// It is constructed once by the result assembler and never mutated.
type ExecutionReport struct {
	Status        Status             `json:"-"`
	Output        string             `json:"-"`
	Errors        string             `json:"-"`
	Images        []Artifact         `json:"-"`
	Objects       map[string]Preview `json:"-"`
	Files         []Artifact         `json:"-"`
	ExecutionTime float64            `json:"-"`
}

type reportWire struct {
	Status        Status             `json:"status"`
	Output        string             `json:"output"`
	Errors        string             `json:"errors"`
	Images        []string           `json:"images"`
	Objects       map[string]Preview `json:"objects"`
	Files         []string           `json:"files"`
	ExecutionTime float64            `json:"execution_time"`
}

// MarshalJSON emits artifact lists as URL arrays and guarantees that
// collections are always present, never null.
func (r ExecutionReport) MarshalJSON() ([]byte, error) {
	w := reportWire{
		Status:        r.Status,
		Output:        r.Output,
		Errors:        r.Errors,
		Images:        artifactURLs(r.Images),
		Objects:       r.Objects,
		Files:         artifactURLs(r.Files),
		ExecutionTime: r.ExecutionTime,
	}
	if w.Objects == nil {
		w.Objects = map[string]Preview{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a report produced by MarshalJSON. Artifact kinds and
// IDs are recovered from the URLs; previews keep their decoded JSON value.
func (r *ExecutionReport) UnmarshalJSON(data []byte) error {
	var w struct {
		Status        Status                     `json:"status"`
		Output        string                     `json:"output"`
		Errors        string                     `json:"errors"`
		Images        []string                   `json:"images"`
		Objects       map[string]json.RawMessage `json:"objects"`
		Files         []string                   `json:"files"`
		ExecutionTime float64                    `json:"execution_time"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Status = w.Status
	r.Output = w.Output
	r.Errors = w.Errors
	r.ExecutionTime = w.ExecutionTime
	r.Images = parseArtifactURLs(ArtifactImage, w.Images)
	r.Files = parseArtifactURLs(ArtifactDataset, w.Files)
	r.Objects = make(map[string]Preview, len(w.Objects))
	for name, raw := range w.Objects {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		r.Objects[name] = RawPreview(v)
	}
	return nil
}

func artifactURLs(artifacts []Artifact) []string {
	urls := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		urls = append(urls, a.URL)
	}
	return urls
}

func parseArtifactURLs(kind ArtifactKind, urls []string) []Artifact {
	prefix := "/files/temp/"
	if kind == ArtifactImage {
		prefix = "/images/temp/"
	}
	out := make([]Artifact, 0, len(urls))
	for _, u := range urls {
		id := u
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			id = id[len(prefix):]
		}
		if ext := kind.Extension(); len(id) > len(ext) && id[len(id)-len(ext):] == ext {
			id = id[:len(id)-len(ext)]
		}
		out = append(out, Artifact{Kind: kind, ID: id, URL: u})
	}
	return out
}
