package probe

import "github.com/go-audio/audio"

// Synth builds the deterministic input signals the probes feed to the
// module. Signals are interleaved float64 buffers carrying channel and
// sample-rate metadata, so the same inputs come out on every run.
type Synth interface {
	// Ramp returns frames*channels samples sweeping linearly from lo to hi
	// across the whole interleaved buffer.
	Ramp(frames, channels, sampleRate int, lo, hi float64) *audio.FloatBuffer

	// Constant returns frames*channels samples all set to value.
	Constant(frames, channels, sampleRate int, value float64) *audio.FloatBuffer

	// Silence returns frames*channels zero samples.
	Silence(frames, channels, sampleRate int) *audio.FloatBuffer
}

// NewSynth constructs the default synthesizer. An error here means the
// numeric capability is unavailable and the suite substitutes a placeholder
// result instead of running probes.
func NewSynth() (Synth, error) {
	return bufferSynth{}, nil
}

type bufferSynth struct{}

func (bufferSynth) buffer(frames, channels, sampleRate int) *audio.FloatBuffer {
	return &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]float64, frames*channels),
	}
}

func (s bufferSynth) Ramp(frames, channels, sampleRate int, lo, hi float64) *audio.FloatBuffer {
	buf := s.buffer(frames, channels, sampleRate)
	n := len(buf.Data)
	if n == 1 {
		buf.Data[0] = lo
		return buf
	}
	step := (hi - lo) / float64(n-1)
	for i := range buf.Data {
		buf.Data[i] = lo + float64(i)*step
	}
	return buf
}

func (s bufferSynth) Constant(frames, channels, sampleRate int, value float64) *audio.FloatBuffer {
	buf := s.buffer(frames, channels, sampleRate)
	for i := range buf.Data {
		buf.Data[i] = value
	}
	return buf
}

func (s bufferSynth) Silence(frames, channels, sampleRate int) *audio.FloatBuffer {
	return s.buffer(frames, channels, sampleRate)
}

// tileImpulse repeats a mono impulse response across channels, interleaved,
// matching how the engine lays out multichannel IRs.
func tileImpulse(ir []float64, channels int) []float64 {
	out := make([]float64, 0, len(ir)*channels)
	for _, v := range ir {
		for c := 0; c < channels; c++ {
			out = append(out, v)
		}
	}
	return out
}
