// File: internal/mission/follower.go
package mission

// followerLostTicks is how many invalid edge ticks the bang-bang follower
// tolerates before stopping.
const followerLostTicks = 10

type edgeCategory int

const (
	edgeUnknown edgeCategory = iota
	edgeBoth
	edgeCorrectRight
	edgeCorrectLeft
	edgeLost
)

func (e edgeCategory) String() string {
	switch e {
	case edgeBoth:
		return "both-edges"
	case edgeCorrectRight:
		return "correcting-right"
	case edgeCorrectLeft:
		return "correcting-left"
	case edgeLost:
		return "lost"
	default:
		return "unknown"
	}
}

// BangBang steers with manual control using three fixed turn rates picked
// from the edge positions. A command is only sent when the category changes.
type BangBang struct {
	mixer    Mixer
	speed    float64
	turnrate float64
	last     edgeCategory
	invalid  int
}

func NewBangBang(mixer Mixer, speed, turnrate float64) *BangBang {
	return &BangBang{
		mixer:    mixer,
		speed:    speed,
		turnrate: turnrate,
	}
}

// Update feeds one edge reading. It returns false on the tick the line is
// declared lost.
func (b *BangBang) Update(e EdgeReading) bool {
	if !e.Valid {
		b.invalid++
		if b.invalid > followerLostTicks && b.last != edgeLost {
			b.mixer.SetManualControl(true, 0, 0)
			b.last = edgeLost
			b.invalid = 0
			return false
		}
		return true
	}
	b.invalid = 0

	switch {
	case e.Right < 0 && e.Left > 0:
		b.send(edgeBoth, 0)
	case e.Right > 0:
		b.send(edgeCorrectRight, b.turnrate)
	case e.Left < 0:
		b.send(edgeCorrectLeft, -b.turnrate)
	}
	return true
}

func (b *BangBang) send(category edgeCategory, turnrate float64) {
	if b.last == category {
		return
	}
	b.mixer.SetManualControl(true, b.speed, turnrate)
	b.last = category
}

// Reset forgets the last category so the next valid reading issues a command.
func (b *BangBang) Reset() {
	b.last = edgeUnknown
	b.invalid = 0
}

func (b *BangBang) Category() string {
	return b.last.String()
}
