//go:build windows

package main

import "syscall"

func init() {
	// UTF-8 for both console input and output so the shell can read and
	// print document names and model replies outside the ANSI code page
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	for _, name := range []string{"SetConsoleOutputCP", "SetConsoleCP"} {
		kernel32.NewProc(name).Call(uintptr(65001)) // 65001 is UTF-8
	}
}
