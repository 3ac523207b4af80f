//go:build arm64

package strmatch

import "golang.org/x/sys/cpu"

func init() {
	hasWideWords = cpu.ARM64.HasASIMD
	initCapabilities()
}
