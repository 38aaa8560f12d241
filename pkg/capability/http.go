package capability

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/debug"
)

// bindHTTP exposes outbound HTTP. Requests use the run's context, so they
// are cancelled when the run times out.
func bindHTTP(e *env) goja.Value {
	vm := e.vm

	do := func(fn, method, url string, body goja.Value, headers goja.Value) goja.Value {
		var rd io.Reader
		if present(body) {
			if obj, ok := body.(*goja.Object); ok && obj.ClassName() != "String" {
				s, ok := stringify(vm, obj)
				if !ok {
					panic(vm.NewTypeError("%s: body is not serializable", fn))
				}
				rd = strings.NewReader(s)
			} else {
				rd = strings.NewReader(body.String())
			}
		}
		req, err := http.NewRequestWithContext(e.ns.Context(), method, url, rd)
		if err != nil {
			panic(vm.NewTypeError("%s: %v", fn, err))
		}
		if obj, ok := headers.(*goja.Object); ok {
			for _, k := range obj.Keys() {
				req.Header.Set(k, obj.Get(k).String())
			}
		}
		debug.Log(debug.Runtime, "script http request", "method", method, "url", url)

		resp, err := e.b.httpClient.Do(req)
		if err != nil {
			throwError(vm, "HTTPError", err.Error())
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, e.b.httpBodyLimit+1))
		if err != nil {
			throwError(vm, "HTTPError", err.Error())
		}
		if int64(len(data)) > e.b.httpBodyLimit {
			throwError(vm, "HTTPError", fmt.Sprintf("response body exceeds %d bytes", e.b.httpBodyLimit))
		}

		hdr := vm.NewObject()
		for k := range resp.Header {
			_ = hdr.Set(strings.ToLower(k), resp.Header.Get(k))
		}
		out := vm.NewObject()
		_ = out.Set("status", resp.StatusCode)
		_ = out.Set("ok", resp.StatusCode >= 200 && resp.StatusCode < 300)
		_ = out.Set("headers", hdr)
		_ = out.Set("body", string(data))
		return out
	}

	return module{
		"get": func(call goja.FunctionCall) goja.Value {
			return do("http.get", http.MethodGet, call.Argument(0).String(), nil, call.Argument(1))
		},
		"post": func(call goja.FunctionCall) goja.Value {
			return do("http.post", http.MethodPost, call.Argument(0).String(), call.Argument(1), call.Argument(2))
		},
		"request": func(call goja.FunctionCall) goja.Value {
			opts, ok := call.Argument(0).(*goja.Object)
			if !ok {
				panic(vm.NewTypeError("http.request: expected {method, url, headers, body}"))
			}
			method := http.MethodGet
			if m := opts.Get("method"); present(m) {
				method = strings.ToUpper(m.String())
			}
			url := opts.Get("url")
			if !present(url) {
				panic(vm.NewTypeError("http.request: url is required"))
			}
			return do("http.request", method, url.String(), opts.Get("body"), opts.Get("headers"))
		},
	}.object(vm)
}
