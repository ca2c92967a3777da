// Package probe runs the functional smoke checks against a loaded native
// audio module and classifies each outcome.
//
// Probes are independent: a fault inside one is captured at probe
// granularity and converted into a failed result, never aborting the rest
// of the suite. Inputs are fixed and deterministic so reports are
// reproducible across runs.
package probe

import (
	"fmt"
	"math"

	"github.com/DerstedtCasper/NTmusic/internal/nativemod"
)

// Probe is one independent functional check against a single exported
// operation.
type Probe interface {
	// Name matches the module export the probe exercises.
	Name() string

	Run(mod nativemod.Module, synth Synth) Result
}

// Suite is the fixed, ordered battery of probes.
type Suite struct {
	probes []Probe
}

// NewSuite returns the standard battery in its canonical run order.
func NewSuite() *Suite {
	return &Suite{probes: []Probe{
		resampleProbe{},
		noiseShapingProbe{},
		iirSOSProbe{},
		volumeSmoothingProbe{},
		fftConvolverProbe{},
	}}
}

// Run executes every probe in order and returns one result per probe.
func (s *Suite) Run(mod nativemod.Module, synth Synth) []Result {
	results := make([]Result, 0, len(s.probes))
	for _, p := range s.probes {
		results = append(results, runOne(p, mod, synth))
	}
	return results
}

// NumericPlaceholder is the single stand-in result emitted when input
// synthesis is unavailable. Strict mode escalates it from skipped to
// failed.
func NumericPlaceholder(err error, strict bool) Result {
	if strict {
		return Result{Name: "numeric", Status: StatusFailed, Error: err.Error()}
	}
	return Result{Name: "numeric", Status: StatusSkipped}
}

func runOne(p Probe, mod nativemod.Module, synth Synth) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Name: p.Name(), Status: StatusFailed, Error: fmt.Sprint(r)}
		}
	}()

	if !mod.Has(p.Name()) {
		return Result{Name: p.Name(), Status: StatusMissing}
	}
	return p.Run(mod, synth)
}

func failed(name string, err error) Result {
	return Result{Name: name, Status: StatusFailed, Error: err.Error()}
}

// ResampleDetails reports the measured against expected output length of
// the resampling operation.
type ResampleDetails struct {
	InputLen    int     `json:"input_len"`
	OutputLen   int     `json:"output_len"`
	ExpectedLen int     `json:"expected_len"`
	Channels    int     `json:"channels"`
	Ratio       float64 `json:"ratio"`
	Warning     string  `json:"warning,omitempty"`
}

type resampleProbe struct{}

func (resampleProbe) Name() string { return nativemod.OpResample }

func (p resampleProbe) Run(mod nativemod.Module, synth Synth) Result {
	const (
		frames   = 2048
		channels = 2
		srcRate  = 48000
		dstRate  = 44100
	)
	signal := synth.Ramp(frames, channels, srcRate, -1.0, 1.0)

	out, err := mod.Resample(signal.Data, srcRate, dstRate, channels, "hq")
	if err != nil {
		return failed(p.Name(), err)
	}
	if out == nil {
		return failed(p.Name(), fmt.Errorf("output has no length"))
	}

	expectedFrames := int(math.Round(frames * float64(dstRate) / float64(srcRate)))
	expectedLen := expectedFrames * channels
	details := ResampleDetails{
		InputLen:    len(signal.Data),
		OutputLen:   len(out),
		ExpectedLen: expectedLen,
		Channels:    channels,
		Ratio:       float64(len(out)) / float64(expectedLen),
	}

	status := StatusPassed
	if float64(len(out)) < float64(expectedLen)*0.5 || float64(len(out)) > float64(expectedLen)*1.5 {
		status = StatusWarning
		details.Warning = "output length outside expected tolerance"
	}
	return Result{Name: p.Name(), Status: status, Details: details}
}

// NoiseShapingDetails reports the shaped output and carried state sizes.
type NoiseShapingDetails struct {
	OutputLen int `json:"output_len"`
	StateLen  int `json:"state_len"`
}

type noiseShapingProbe struct{}

func (noiseShapingProbe) Name() string { return nativemod.OpNoiseShaping }

func (p noiseShapingProbe) Run(mod nativemod.Module, synth Synth) Result {
	const (
		frames     = 64
		channels   = 2
		sampleRate = 48000
		bits       = 24
		stateOrder = 5
	)
	signal := synth.Silence(frames, channels, sampleRate)
	state := make([]float64, channels*stateOrder)

	out, nextState, err := mod.ApplyNoiseShaping(signal.Data, state, sampleRate, bits, channels)
	if err != nil {
		return failed(p.Name(), err)
	}
	return Result{
		Name:   p.Name(),
		Status: StatusPassed,
		Details: NoiseShapingDetails{
			OutputLen: len(out),
			StateLen:  len(nextState),
		},
	}
}

// SOSDetails reports the filtered output and filter state sizes.
type SOSDetails struct {
	OutputLen int    `json:"output_len"`
	ZiLen     int    `json:"zi_len"`
	Warning   string `json:"warning,omitempty"`
}

type iirSOSProbe struct{}

func (iirSOSProbe) Name() string { return nativemod.OpIIRSOS }

func (p iirSOSProbe) Run(mod nativemod.Module, synth Synth) Result {
	const (
		frames   = 64
		channels = 2
	)
	signal := synth.Ramp(frames, channels, 48000, -0.5, 0.5)

	// single identity section: b=[1,0,0], a=[1,0,0]
	sos := []float64{1.0, 0.0, 0.0, 1.0, 0.0, 0.0}
	zi := make([]float64, channels*1*2)

	out, nextZi, err := mod.ApplyIIRSOS(signal.Data, sos, zi, channels)
	if err != nil {
		return failed(p.Name(), err)
	}

	details := SOSDetails{OutputLen: len(out), ZiLen: len(nextZi)}
	status := StatusPassed
	if !allClose(out, signal.Data, 1e-9) {
		status = StatusWarning
		details.Warning = "identity SOS output deviates from input"
	}
	return Result{Name: p.Name(), Status: status, Details: details}
}

// VolumeDetails reports the smoothed output size and the gain reached at
// block end.
type VolumeDetails struct {
	OutputLen int     `json:"output_len"`
	NextValue float64 `json:"next_value"`
}

type volumeSmoothingProbe struct{}

func (volumeSmoothingProbe) Name() string { return nativemod.OpVolumeSmoothing }

func (p volumeSmoothingProbe) Run(mod nativemod.Module, synth Synth) Result {
	const (
		frames   = 64
		channels = 2
	)
	signal := synth.Constant(frames, channels, 48000, 0.5)

	out, next, err := mod.ApplyVolumeSmoothing(signal.Data, 0.0, 1.0, 0.5, channels)
	if err != nil {
		return failed(p.Name(), err)
	}
	return Result{
		Name:   p.Name(),
		Status: StatusPassed,
		Details: VolumeDetails{
			OutputLen: len(out),
			NextValue: next,
		},
	}
}

// ConvolverDetails reports the convolved output size.
type ConvolverDetails struct {
	OutputLen int `json:"output_len"`
}

type fftConvolverProbe struct{}

func (fftConvolverProbe) Name() string { return nativemod.OpFFTConvolver }

func (p fftConvolverProbe) Run(mod nativemod.Module, synth Synth) Result {
	const (
		frames   = 128
		channels = 2
	)
	signal := synth.Ramp(frames, channels, 48000, -0.25, 0.25)
	ir := tileImpulse([]float64{1.0}, channels)

	convolver, err := mod.NewFFTConvolver(ir, channels)
	if err != nil {
		return failed(p.Name(), err)
	}
	defer func() { _ = convolver.Close() }()

	out, err := convolver.Process(signal.Data)
	if err != nil {
		return failed(p.Name(), err)
	}
	return Result{
		Name:    p.Name(),
		Status:  StatusPassed,
		Details: ConvolverDetails{OutputLen: len(out)},
	}
}

func allClose(a, b []float64, atol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > atol {
			return false
		}
	}
	return true
}
