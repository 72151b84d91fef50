// Package anydevice selects the numeric backend used for
// every tensor a training run creates.
package anydevice

import (
	"errors"
	"fmt"

	"github.com/klauspost/cpuid/v2"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

// ErrNoAccelerator is returned when an accelerator device
// is requested but this build has no accelerator backend.
var ErrNoAccelerator = errors.New("no accelerator backend available")

// These are the supported precisions.
const (
	Float32 = "float32"
	Float64 = "float64"
)

// A Backend is an explicit handle to the numeric backend.
// Its Creator is passed to every call that creates
// vectors.
type Backend struct {
	Device    int
	Precision string
	Creator   anyvec.Creator
}

// Open creates the backend for a device.
//
// A negative device selects the CPU.
// Any other device is an accelerator, which fails with
// ErrNoAccelerator rather than silently running on the
// CPU.
// An empty precision means Float32.
func Open(device int, precision string) (*Backend, error) {
	if device >= 0 {
		return nil, fmt.Errorf("open device %d: %w", device, ErrNoAccelerator)
	}
	if precision == "" {
		precision = Float32
	}
	res := &Backend{Device: device, Precision: precision}
	switch precision {
	case Float32:
		res.Creator = anyvec32.CurrentCreator()
	case Float64:
		res.Creator = anyvec64.CurrentCreator()
	default:
		return nil, fmt.Errorf("open device %d: unknown precision %q", device, precision)
	}
	return res, nil
}

// Describe summarizes the processor the backend runs on.
func (b *Backend) Describe() string {
	return fmt.Sprintf("cpu %q: %d cores, %d threads, avx2=%v, %s",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), b.Precision)
}
