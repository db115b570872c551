//go:build darwin

package ffi

import "github.com/ebitengine/purego"

// defaultLibName is the AVFoundation host wrapper built alongside this
// module. dlopen searches DYLD_LIBRARY_PATH and standard locations.
const defaultLibName = "libframebridge_avf.dylib"

func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func register(fptr interface{}, handle uintptr, name string) {
	purego.RegisterLibFunc(fptr, handle, name)
}
