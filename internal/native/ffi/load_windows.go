//go:build windows

package ffi

import (
	"syscall"

	"github.com/ebitengine/purego"
)

// defaultLibName is the Media Foundation host wrapper built alongside
// this module. LoadLibrary searches the executable directory and PATH.
const defaultLibName = "framebridge_mf.dll"

func openLibrary(path string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func register(fptr interface{}, handle uintptr, name string) {
	purego.RegisterLibFunc(fptr, handle, name)
}
