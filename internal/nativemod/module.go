// Package nativemod loads the packaged native audio module and exposes its
// operation surface behind a narrow Go interface.
//
// The loader never mutates process-global state: every load is scoped to an
// explicit LoadContext naming the directory holding the unpacked module.
package nativemod

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ModuleName is the fixed import name of the native module inside an
// unpacked artifact.
const ModuleName = "rust_audio_resampler"

// Operation names as exported by the native module.
const (
	OpResample        = "resample"
	OpVolumeSmoothing = "apply_volume_smoothing"
	OpIIRSOS          = "apply_iir_sos"
	OpNoiseShaping    = "apply_noise_shaping_high_order"
	OpFFTConvolver    = "FFTConvolver"
)

// knownOps is the fixed operation surface, in declaration order. Used for
// export enumeration when the artifact ships no explicit manifest.
var knownOps = []string{
	OpResample,
	OpVolumeSmoothing,
	OpIIRSOS,
	OpNoiseShaping,
	OpFFTConvolver,
}

// Module is the capability-query adapter over a loaded native module.
// Callers check Has before invoking an operation; invoking an absent
// operation returns an error rather than crashing.
type Module interface {
	// Exports lists the module's declared exports, or every resolvable
	// public operation when no declaration exists.
	Exports() []string

	// Has reports whether the named operation is callable.
	Has(op string) bool

	// Resample converts interleaved samples from srcRate to dstRate.
	Resample(in []float64, srcRate, dstRate, channels int, quality string) ([]float64, error)

	// ApplyVolumeSmoothing ramps gain from current toward target, returning
	// the processed samples and the gain reached at block end.
	ApplyVolumeSmoothing(in []float64, current, target, smoothing float64, channels int) ([]float64, float64, error)

	// ApplyIIRSOS runs a cascade of second-order sections over the samples,
	// returning output and the updated filter state.
	ApplyIIRSOS(in, sos, zi []float64, channels int) ([]float64, []float64, error)

	// ApplyNoiseShaping applies high-order noise shaping for the given
	// output bit depth, returning output and the updated shaper state.
	ApplyNoiseShaping(in, state []float64, sampleRate, bits, channels int) ([]float64, []float64, error)

	// NewFFTConvolver builds a block convolver for the interleaved impulse
	// response.
	NewFFTConvolver(ir []float64, channels int) (Convolver, error)

	// Close releases the underlying library handle.
	Close() error
}

// Convolver processes sample blocks against a fixed impulse response.
type Convolver interface {
	Process(in []float64) ([]float64, error)
	Close() error
}

// exportManifest is the optional declared export list an artifact may carry
// at <dir>/<module>/exports.json.
type exportManifest struct {
	Exports []string `json:"exports"`
}

// readExportManifest returns the declared export list, or nil when the
// artifact does not declare one.
func readExportManifest(dir string) ([]string, error) {
	path := filepath.Join(dir, ModuleName, "exports.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading export manifest: %w", err)
	}

	var manifest exportManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing export manifest: %w", err)
	}
	return manifest.Exports, nil
}
