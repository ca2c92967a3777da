//go:build darwin || freebsd || linux

package nativemod

import "github.com/ebitengine/purego"

func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}

func hasSymbol(handle uintptr, name string) bool {
	sym, err := purego.Dlsym(handle, name)
	return err == nil && sym != 0
}
