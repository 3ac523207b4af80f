//go:build amd64

package strmatch

import "golang.org/x/sys/cpu"

func init() {
	hasWideWords = cpu.X86.HasSSE2
	initCapabilities()
}
