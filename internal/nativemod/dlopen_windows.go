//go:build windows

package nativemod

import "golang.org/x/sys/windows"

func openLibrary(path string) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	return uintptr(handle), err
}

func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

func hasSymbol(handle uintptr, name string) bool {
	addr, err := windows.GetProcAddress(windows.Handle(handle), name)
	return err == nil && addr != 0
}
