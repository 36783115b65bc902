package audio

// VADConfig holds configuration for the energy based activity detector
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech
	SilenceFrames   int     // Consecutive quiet frames that end a speech segment
}

// DefaultVADConfig returns a default VAD configuration
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
	}
}

// Activity is the detector's verdict for one frame.
type Activity struct {
	RMS      float64
	Speaking bool
	Started  bool // first loud frame of a segment
	Ended    bool // SilenceFrames quiet frames after speech
}

// VADDetector tracks speech segments in captured audio. Recognition itself
// is left to the transcription service; the detector only feeds the input
// level and segment metrics. It is not safe for concurrent use.
type VADDetector struct {
	config         VADConfig
	silenceCounter int
	isSpeaking     bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	cfg := *config
	if cfg.SilenceFrames < 1 {
		cfg.SilenceFrames = 1
	}
	return &VADDetector{config: cfg}
}

// ProcessFrame classifies one frame of PCM bytes.
func (v *VADDetector) ProcessFrame(pcm []byte) Activity {
	return v.ProcessSamples(BytesToSamples(pcm))
}

// ProcessSamples classifies one frame of samples.
func (v *VADDetector) ProcessSamples(samples []int16) Activity {
	a := Activity{RMS: CalculateRMS(samples)}

	if a.RMS > v.config.EnergyThreshold {
		v.silenceCounter = 0
		if !v.isSpeaking {
			a.Started = true
			v.isSpeaking = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			a.Ended = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	a.Speaking = v.isSpeaking
	return a
}

// Reset forgets any segment in progress
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.isSpeaking = false
}

// IsSpeaking returns whether a speech segment is in progress
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}
