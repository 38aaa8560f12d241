package capability

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"net/url"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// bindEncoding exposes text codecs, digests, UUIDs and YAML.
func bindEncoding(e *env) goja.Value {
	vm := e.vm
	str := func(fn func(string) string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(fn(call.Argument(0).String()))
		}
	}
	strErr := func(fn func(string) (string, error)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			out, err := fn(call.Argument(0).String())
			check(vm, err)
			return vm.ToValue(out)
		}
	}
	digest := func(newHash func() hash.Hash) func(goja.FunctionCall) goja.Value {
		return str(func(s string) string {
			h := newHash()
			h.Write([]byte(s))
			return hex.EncodeToString(h.Sum(nil))
		})
	}

	return module{
		"base64Encode": str(func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }),
		"base64Decode": strErr(func(s string) (string, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			return string(b), err
		}),
		"hexEncode": str(func(s string) string { return hex.EncodeToString([]byte(s)) }),
		"hexDecode": strErr(func(s string) (string, error) {
			b, err := hex.DecodeString(s)
			return string(b), err
		}),
		"urlEncode": str(url.QueryEscape),
		"urlDecode": strErr(url.QueryUnescape),
		"md5":       digest(md5.New),
		"sha1":      digest(sha1.New),
		"sha256":    digest(sha256.New),
		"uuid": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(uuid.NewString())
		},
		"yamlParse": func(call goja.FunctionCall) goja.Value {
			var out any
			if err := yaml.Unmarshal([]byte(call.Argument(0).String()), &out); err != nil {
				throwError(vm, "Error", fmt.Sprintf("invalid YAML: %v", err))
			}
			// Round-trip through JSON so the result is a plain script object
			// with stable key order.
			b, err := json.Marshal(out)
			check(vm, err)
			parsed, ok := parseJSON(vm, string(b))
			if !ok {
				throwError(vm, "Error", "YAML document is not representable as JSON")
			}
			return parsed
		},
		"yamlStringify": func(call goja.FunctionCall) goja.Value {
			b, err := yaml.Marshal(call.Argument(0).Export())
			check(vm, err)
			return vm.ToValue(string(b))
		},
	}.object(vm)
}
