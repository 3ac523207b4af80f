// Package strmatch holds the string comparison primitives used by the index
// query path. Every primitive has a scalar kernel and a word-batched kernel
// that processes 8 bytes at a time; the batched kernels are selected at init
// when the CPU reports wide integer registers and can be forced either way
// with DOCSEARCH_STRMATCH=generic|batched.
package strmatch

import (
	"os"
	"runtime"
	"strings"
	"sync/atomic"
)

// Impl identifies a kernel family.
type Impl uint8

const (
	// Generic is the byte-at-a-time implementation.
	Generic Impl = iota
	// Batched compares 8/16/32-byte words per step.
	Batched
)

const envOverride = "DOCSEARCH_STRMATCH"

func (i Impl) String() string {
	switch i {
	case Generic:
		return "generic"
	case Batched:
		return "batched"
	default:
		return "unknown"
	}
}

// ParseImpl parses an implementation name.
func ParseImpl(s string) (Impl, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "batched":
		return Batched, true
	default:
		return Generic, false
	}
}

var (
	active      atomic.Pointer[kernelSet]
	hasOverride bool

	// set by the platform init before initCapabilities runs
	hasWideWords bool
)

func initCapabilities() {
	if override := os.Getenv(envOverride); override != "" {
		if impl, ok := ParseImpl(override); ok {
			hasOverride = true
			active.Store(kernelsFor(impl))
			return
		}
	}
	active.Store(kernelsFor(selectBest()))
}

func selectBest() Impl {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		if hasWideWords {
			return Batched
		}
	}
	return Generic
}

// Active returns the implementation currently serving the package functions.
func Active() Impl {
	return active.Load().impl
}

// IsOverridden reports whether DOCSEARCH_STRMATCH selected the implementation.
func IsOverridden() bool {
	return hasOverride
}

// Use switches every primitive to impl and returns a func restoring the
// previous selection. Intended for tests and benchmarks.
func Use(impl Impl) (restore func()) {
	prev := active.Swap(kernelsFor(impl))
	return func() { active.Store(prev) }
}
