//go:build !amd64 && !arm64

package strmatch

func init() {
	initCapabilities()
}
