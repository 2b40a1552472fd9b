// File: internal/mission/detectors.go
package mission

// IntersectionDebounce is the number of consecutive wide readings that must
// be exceeded before an intersection is reported.
const IntersectionDebounce = 5

// IntersectionDetector debounces the line width signal. It stays silent until
// the robot has travelled past startDistance since the last odometry reset.
type IntersectionDetector struct {
	startDistance float64
	minWidth      float64
	counter       int
}

func NewIntersectionDetector(startDistance, minWidth float64) *IntersectionDetector {
	return &IntersectionDetector{
		startDistance: startDistance,
		minWidth:      minWidth,
	}
}

// Detect feeds one tick and reports whether an intersection is under the robot.
func (d *IntersectionDetector) Detect(width, distance float64) bool {
	if distance <= d.startDistance {
		return false
	}
	if width > d.minWidth {
		d.counter++
	} else {
		d.counter = 0
	}
	return d.counter > IntersectionDebounce
}

// Reset re-arms the detector. Consumers call it when they act on an
// intersection so one physical crossing fires once.
func (d *IntersectionDetector) Reset() {
	d.counter = 0
}

func (d *IntersectionDetector) Count() int {
	return d.counter
}

// LineLostDetector fires once per run of more than threshold invalid ticks.
type LineLostDetector struct {
	threshold int
	counter   int
}

func NewLineLostDetector(threshold int) *LineLostDetector {
	return &LineLostDetector{threshold: threshold}
}

func (d *LineLostDetector) Detect(valid bool) bool {
	if valid {
		d.counter = 0
		return false
	}
	d.counter++
	if d.counter > d.threshold {
		d.counter = 0
		return true
	}
	return false
}

// SetThreshold changes the debounce depth and restarts counting.
func (d *LineLostDetector) SetThreshold(threshold int) {
	d.threshold = threshold
	d.counter = 0
}

func (d *LineLostDetector) Threshold() int {
	return d.threshold
}
