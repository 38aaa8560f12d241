package capability

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"sort"

	"github.com/dop251/goja"
)

// maxInflated caps decompressed output so a small archive cannot exhaust
// memory.
const maxInflated = 64 << 20

// bindCompress exposes gzip and zip. Compressed data travels through
// scripts as base64 text.
func bindCompress(e *env) goja.Value {
	vm := e.vm
	return module{
		"gzip": func(call goja.FunctionCall) goja.Value {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, err := zw.Write([]byte(call.Argument(0).String()))
			if err == nil {
				err = zw.Close()
			}
			check(vm, err)
			return vm.ToValue(base64.StdEncoding.EncodeToString(buf.Bytes()))
		},
		"gunzip": func(call goja.FunctionCall) goja.Value {
			raw, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
			check(vm, err)
			zr, err := gzip.NewReader(bytes.NewReader(raw))
			check(vm, err)
			out, err := readLimited(zr)
			check(vm, err)
			return vm.ToValue(string(out))
		},
		"zip": func(call goja.FunctionCall) goja.Value {
			obj, ok := call.Argument(0).(*goja.Object)
			if !ok {
				panic(vm.NewTypeError("compress.zip: expected an object of file names to contents"))
			}
			names := obj.Keys()
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			for _, name := range names {
				w, err := zw.Create(name)
				check(vm, err)
				_, err = w.Write([]byte(obj.Get(name).String()))
				check(vm, err)
			}
			check(vm, zw.Close())
			return vm.ToValue(base64.StdEncoding.EncodeToString(buf.Bytes()))
		},
		"unzip": func(call goja.FunctionCall) goja.Value {
			raw, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
			check(vm, err)
			zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
			check(vm, err)
			files := make([]*zip.File, 0, len(zr.File))
			for _, f := range zr.File {
				if !f.FileInfo().IsDir() {
					files = append(files, f)
				}
			}
			sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })

			out := vm.NewObject()
			for _, f := range files {
				rc, err := f.Open()
				check(vm, err)
				data, err := readLimited(rc)
				rc.Close()
				check(vm, err)
				_ = out.Set(f.Name, string(data))
			}
			return out
		},
	}.object(vm)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInflated+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInflated {
		return nil, fmt.Errorf("decompressed data exceeds %d bytes", maxInflated)
	}
	return data, nil
}
