package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MotionConfig holds MotionDetector options.
type MotionConfig struct {
	// Threshold is the percentage of pixels that must change between
	// frames to count as motion. 1.0 means 1%.
	Threshold float64

	// BlurSize is the Gaussian kernel size applied before differencing.
	BlurSize int

	// PixelDelta is the per-pixel intensity change treated as changed.
	PixelDelta float32
}

// DefaultMotionConfig returns a MotionConfig with sensible default values.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Threshold:  0.5,
		BlurSize:   21,
		PixelDelta: 25,
	}
}

// Motion is the result of comparing a frame with the previous one.
type Motion struct {
	Detected bool
	Percent  float64
}

// MotionDetector compares consecutive frames so pose detection only runs
// while the patient is moving.
type MotionDetector struct {
	config      MotionConfig
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. Zero values in config fall
// back to DefaultMotionConfig.
func NewMotionDetector(config MotionConfig) *MotionDetector {
	def := DefaultMotionConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.BlurSize <= 0 || config.BlurSize%2 == 0 {
		config.BlurSize = def.BlurSize
	}
	if config.PixelDelta <= 0 {
		config.PixelDelta = def.PixelDelta
	}
	return &MotionDetector{
		config:   config,
		prevGray: gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame only sets
// the baseline and never reports motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := m.config.BlurSize
	gocv.GaussianBlur(gray, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return Motion{}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, m.config.PixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100
	blurred.CopyTo(&m.prevGray)

	return Motion{Detected: changed > m.config.Threshold, Percent: changed}
}

// Reset forgets the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Threshold = threshold
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prevGray.Close()
	m.initialized = false
}
