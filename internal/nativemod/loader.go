package nativemod

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
)

// LoadContext scopes a single load. It is threaded explicitly instead of
// mutating any process-wide search path, so extracted contents take priority
// without surviving the call.
type LoadContext struct {
	// Dir is the working directory holding the unpacked artifact.
	Dir string

	// Name overrides the module name; empty means ModuleName.
	Name string
}

// opSymbols maps the module's operation names to the native entry points.
var opSymbols = map[string]string{
	OpResample:        "rar_resample",
	OpVolumeSmoothing: "rar_apply_volume_smoothing",
	OpIIRSOS:          "rar_apply_iir_sos",
	OpNoiseShaping:    "rar_apply_noise_shaping_high_order",
	OpFFTConvolver:    "rar_fft_convolver_new",
}

// sharedLibExts lists recognized shared-library suffixes across the
// platforms the artifact is built for.
var sharedLibExts = []string{".so", ".dylib", ".pyd", ".dll"}

type nativeModule struct {
	handle  uintptr
	path    string
	exports []string

	lastError func() string

	resample func(in uintptr, inLen uint64, srcRate, dstRate, channels int32, quality string, out uintptr, outCap uint64) int64
	volume   func(in uintptr, inLen uint64, current, target, smoothing float64, channels int32, out, nextOut uintptr) int64
	iirSOS   func(in uintptr, inLen uint64, sos uintptr, sosLen uint64, zi uintptr, ziLen uint64, channels int32, out, ziOut uintptr) int64
	noise    func(in uintptr, inLen uint64, state uintptr, stateLen uint64, sampleRate, bits, channels int32, out, stateOut uintptr) int64
	convNew  func(ir uintptr, irLen uint64, channels int32) uintptr
	convProc func(h uintptr, in uintptr, inLen uint64, out uintptr) int64
	convFree func(h uintptr)
}

// Load opens the native module under the context directory and binds its
// operation surface. All failure modes (no library, loader error, missing
// mandatory symbols) come back as a single error for the caller to report.
func Load(lc LoadContext) (Module, error) {
	name := lc.Name
	if name == "" {
		name = ModuleName
	}

	libPath, err := findSharedLib(lc.Dir, name)
	if err != nil {
		return nil, err
	}

	handle, err := openLibrary(libPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", libPath, err)
	}

	mod := &nativeModule{handle: handle, path: libPath}
	mod.bind()

	declared, err := readExportManifest(lc.Dir)
	if err != nil {
		_ = closeLibrary(handle)
		return nil, err
	}
	if declared != nil {
		mod.exports = declared
	} else {
		for _, op := range knownOps {
			if mod.Has(op) {
				mod.exports = append(mod.exports, op)
			}
		}
	}

	return mod, nil
}

// findSharedLib locates the module's shared library inside the unpacked
// tree. Wheels place it either at the top level or inside the package
// directory, so the whole tree is walked.
func findSharedLib(dir, name string) (string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := d.Name()
		if !strings.HasPrefix(base, name) && !strings.HasPrefix(base, "lib"+name) {
			return nil
		}
		for _, ext := range sharedLibExts {
			if strings.HasSuffix(base, ext) {
				found = append(found, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no shared library for %s under %s", name, dir)
	}
	sort.Strings(found)
	return found[0], nil
}

func (m *nativeModule) bind() {
	if hasSymbol(m.handle, "rar_last_error") {
		purego.RegisterLibFunc(&m.lastError, m.handle, "rar_last_error")
	}
	if hasSymbol(m.handle, opSymbols[OpResample]) {
		purego.RegisterLibFunc(&m.resample, m.handle, opSymbols[OpResample])
	}
	if hasSymbol(m.handle, opSymbols[OpVolumeSmoothing]) {
		purego.RegisterLibFunc(&m.volume, m.handle, opSymbols[OpVolumeSmoothing])
	}
	if hasSymbol(m.handle, opSymbols[OpIIRSOS]) {
		purego.RegisterLibFunc(&m.iirSOS, m.handle, opSymbols[OpIIRSOS])
	}
	if hasSymbol(m.handle, opSymbols[OpNoiseShaping]) {
		purego.RegisterLibFunc(&m.noise, m.handle, opSymbols[OpNoiseShaping])
	}
	if hasSymbol(m.handle, opSymbols[OpFFTConvolver]) &&
		hasSymbol(m.handle, "rar_fft_convolver_process") &&
		hasSymbol(m.handle, "rar_fft_convolver_free") {
		purego.RegisterLibFunc(&m.convNew, m.handle, opSymbols[OpFFTConvolver])
		purego.RegisterLibFunc(&m.convProc, m.handle, "rar_fft_convolver_process")
		purego.RegisterLibFunc(&m.convFree, m.handle, "rar_fft_convolver_free")
	}
}

func (m *nativeModule) Exports() []string { return m.exports }

func (m *nativeModule) Has(op string) bool {
	sym, ok := opSymbols[op]
	if !ok {
		return false
	}
	return hasSymbol(m.handle, sym)
}

func (m *nativeModule) Close() error {
	if m.handle == 0 {
		return nil
	}
	err := closeLibrary(m.handle)
	m.handle = 0
	return err
}

// fault renders the module's last error, falling back to a generic message
// when the module exposes no diagnostics.
func (m *nativeModule) fault(op string) error {
	if m.lastError != nil {
		if msg := m.lastError(); msg != "" {
			return fmt.Errorf("%s: %s", op, msg)
		}
	}
	return fmt.Errorf("%s: native call failed", op)
}

func dataPtr(buf []float64) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

func (m *nativeModule) Resample(in []float64, srcRate, dstRate, channels int, quality string) ([]float64, error) {
	if m.resample == nil {
		return nil, fmt.Errorf("operation %s not available", OpResample)
	}
	ratio := float64(dstRate) / float64(srcRate)
	outCap := int(math.Ceil(float64(len(in))*ratio))*2 + 64*channels
	out := make([]float64, outCap)

	n := m.resample(dataPtr(in), uint64(len(in)), int32(srcRate), int32(dstRate), int32(channels), quality, dataPtr(out), uint64(outCap))
	runtime.KeepAlive(in)
	runtime.KeepAlive(out)
	if n < 0 {
		return nil, m.fault(OpResample)
	}
	return out[:n], nil
}

func (m *nativeModule) ApplyVolumeSmoothing(in []float64, current, target, smoothing float64, channels int) ([]float64, float64, error) {
	if m.volume == nil {
		return nil, 0, fmt.Errorf("operation %s not available", OpVolumeSmoothing)
	}
	out := make([]float64, len(in))
	next := make([]float64, 1)

	n := m.volume(dataPtr(in), uint64(len(in)), current, target, smoothing, int32(channels), dataPtr(out), dataPtr(next))
	runtime.KeepAlive(in)
	runtime.KeepAlive(out)
	if n < 0 {
		return nil, 0, m.fault(OpVolumeSmoothing)
	}
	return out[:n], next[0], nil
}

func (m *nativeModule) ApplyIIRSOS(in, sos, zi []float64, channels int) ([]float64, []float64, error) {
	if m.iirSOS == nil {
		return nil, nil, fmt.Errorf("operation %s not available", OpIIRSOS)
	}
	out := make([]float64, len(in))
	ziOut := make([]float64, len(zi))

	n := m.iirSOS(dataPtr(in), uint64(len(in)), dataPtr(sos), uint64(len(sos)), dataPtr(zi), uint64(len(zi)), int32(channels), dataPtr(out), dataPtr(ziOut))
	runtime.KeepAlive(in)
	runtime.KeepAlive(sos)
	runtime.KeepAlive(zi)
	runtime.KeepAlive(out)
	if n < 0 {
		return nil, nil, m.fault(OpIIRSOS)
	}
	return out[:n], ziOut, nil
}

func (m *nativeModule) ApplyNoiseShaping(in, state []float64, sampleRate, bits, channels int) ([]float64, []float64, error) {
	if m.noise == nil {
		return nil, nil, fmt.Errorf("operation %s not available", OpNoiseShaping)
	}
	out := make([]float64, len(in))
	stateOut := make([]float64, len(state))

	n := m.noise(dataPtr(in), uint64(len(in)), dataPtr(state), uint64(len(state)), int32(sampleRate), int32(bits), int32(channels), dataPtr(out), dataPtr(stateOut))
	runtime.KeepAlive(in)
	runtime.KeepAlive(state)
	runtime.KeepAlive(out)
	if n < 0 {
		return nil, nil, m.fault(OpNoiseShaping)
	}
	return out[:n], stateOut, nil
}

func (m *nativeModule) NewFFTConvolver(ir []float64, channels int) (Convolver, error) {
	if m.convNew == nil {
		return nil, fmt.Errorf("operation %s not available", OpFFTConvolver)
	}
	h := m.convNew(dataPtr(ir), uint64(len(ir)), int32(channels))
	runtime.KeepAlive(ir)
	if h == 0 {
		return nil, m.fault(OpFFTConvolver)
	}
	return &nativeConvolver{mod: m, handle: h}, nil
}

type nativeConvolver struct {
	mod    *nativeModule
	handle uintptr
}

func (c *nativeConvolver) Process(in []float64) ([]float64, error) {
	if c.handle == 0 {
		return nil, fmt.Errorf("convolver already closed")
	}
	out := make([]float64, len(in))

	n := c.mod.convProc(c.handle, dataPtr(in), uint64(len(in)), dataPtr(out))
	runtime.KeepAlive(in)
	runtime.KeepAlive(out)
	if n < 0 {
		return nil, c.mod.fault(OpFFTConvolver)
	}
	return out[:n], nil
}

func (c *nativeConvolver) Close() error {
	if c.handle != 0 {
		c.mod.convFree(c.handle)
		c.handle = 0
	}
	return nil
}
