package wld

import (
	"github.com/golang/glog"
)

// Limits applied when the corresponding Options field is zero.
const (
	DefaultMaxDimension    = 10000
	DefaultMinTileBytes    = inactiveTileBytes
	DefaultRecheckInterval = 1000000
)

// Options tunes a Decoder. The zero value is ready to use.
type Options struct {
	// MaxDimension caps both width and height.
	MaxDimension int

	// MinTileBytes is the per-tile size assumed by the pre-flight check
	// that rejects obviously truncated tile grids before any tile is read.
	// The default is the size of an inactive tile, 1 byte, so a grid made
	// only of inactive tiles passes. 8 is the usual conservative estimate;
	// it rejects such grids.
	MinTileBytes int

	// RecheckInterval is how many tiles are decoded between checks that the
	// remaining bytes can still cover the remaining tiles. Negative disables
	// the check.
	RecheckInterval int

	// MinVersion and MaxVersion bound the accepted file format version. Zero
	// leaves that side unbounded.
	MinVersion, MaxVersion int32

	// RequireSignature makes the decoder check the two metadata words of the
	// file format header for the world file signature.
	RequireSignature bool

	// Tracer receives diagnostics. It may be nil.
	Tracer Tracer
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.MinTileBytes <= 0 {
		o.MinTileBytes = DefaultMinTileBytes
	}
	if o.RecheckInterval == 0 {
		o.RecheckInterval = DefaultRecheckInterval
	}
	if o.Tracer == nil {
		o.Tracer = nopTracer{}
	}
	return o
}

// Tracer is a sink for decoder diagnostics. Tracing never influences what is
// decoded.
type Tracer interface {
	Tracef(format string, args ...interface{})
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(format string, args ...interface{})

func (f TracerFunc) Tracef(format string, args ...interface{}) {
	f(format, args...)
}

// GlogTracer sends diagnostics to glog at the given verbosity.
type GlogTracer struct {
	Level glog.Level
}

func (t GlogTracer) Tracef(format string, args ...interface{}) {
	glog.V(t.Level).Infof(format, args...)
}

type nopTracer struct{}

func (nopTracer) Tracef(string, ...interface{}) {}
