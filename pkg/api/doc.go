// Package api defines the wire types of the code interpreter service.
//
// It covers the inbound run request, the execution report returned for every
// submission, the tagged object previews embedded in that report, artifact
// references, structured API errors, artifact ID generation and the
// per-submission run state machine.
//
// The package performs no I/O. Every type marshals to the JSON shape the
// upstream orchestration layer consumes:
//
//	{
//	  "status": "success",
//	  "output": "done\n",
//	  "errors": "",
//	  "images": ["/images/temp/<id>.png"],
//	  "objects": {"df": {"type": "Table", "rows": 1, ...}},
//	  "files": ["/files/temp/<id>.csv"],
//	  "execution_time": 0.42
//	}
//
// Core types:
//   - [RunRequest]: Client request to execute a code snippet
//   - [ExecutionReport]: Immutable result of one submission
//   - [Preview]: Bounded, JSON-safe summary of a value left in the namespace
//   - [Artifact]: Persisted image or dataset addressable by URL
//   - [APIError]: Structured error with type, code, param, and message
package api
