package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"robobot-mission/internal/config"
	"robobot-mission/internal/logger"
	"robobot-mission/internal/mission"
)

// Keys written by the low-level robot service.
const (
	EdgeHash       = "robot:edge"
	DistHash       = "robot:dist"
	PoseHash       = "robot:pose"
	MixerKey       = "robot:mixer"
	EdgeCommandKey = "robot:edge:cmd"
)

// RobotBridge implements the mission collaborators on top of Redis. Sample
// fetches all sensor hashes in one round trip; the getters then serve that
// snapshot. Like the Controller it is driven from the mission goroutine only.
type RobotBridge struct {
	client    *redis.Client
	logger    *logger.Logger
	ctx       context.Context
	warnLimit *rate.Limiter

	edge      mission.EdgeReading
	distances []float64

	// cumulative odometry as published, and the origin of the last Reset
	dist, heading             float64
	originDist, originHeading float64
	// sampled is set by the first successful Sample. A Reset before that
	// has no pose to take, so the origin is taken by the next Sample.
	sampled, pendingOrigin bool
}

func NewRobotBridge(client *redis.Client, l *logger.Logger) *RobotBridge {
	return &RobotBridge{
		client:    client,
		logger:    l.WithTag("bridge"),
		ctx:       context.Background(),
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Sample reads edge, distance and pose with a single pipelined HGETALL of
// each hash.
func (b *RobotBridge) Sample(ctx context.Context) error {
	pipe := b.client.Pipeline()
	edgeCmd := pipe.HGetAll(ctx, EdgeHash)
	distCmd := pipe.HGetAll(ctx, DistHash)
	poseCmd := pipe.HGetAll(ctx, PoseHash)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sample robot state: %w", err)
	}

	edge, err := parseEdge(edgeCmd.Val())
	if err != nil {
		return err
	}
	distances, err := parseDistances(distCmd.Val())
	if err != nil {
		return err
	}
	pose := poseCmd.Val()
	dist, err := parseFloat(pose, "dist")
	if err != nil {
		return fmt.Errorf("%s: %w", PoseHash, err)
	}
	heading, err := parseFloat(pose, "heading")
	if err != nil {
		return fmt.Errorf("%s: %w", PoseHash, err)
	}

	b.edge = edge
	b.distances = distances
	b.dist = dist
	b.heading = heading
	b.sampled = true
	if b.pendingOrigin {
		b.pendingOrigin = false
		b.Reset()
	}
	return nil
}

func parseEdge(h map[string]string) (mission.EdgeReading, error) {
	if len(h) == 0 {
		return mission.EdgeReading{}, fmt.Errorf("%s is empty", EdgeHash)
	}
	var e mission.EdgeReading
	var err error
	e.Valid = h["valid"] == "true"
	if e.Left, err = parseFloat(h, "left"); err != nil {
		return e, fmt.Errorf("%s: %w", EdgeHash, err)
	}
	if e.Right, err = parseFloat(h, "right"); err != nil {
		return e, fmt.Errorf("%s: %w", EdgeHash, err)
	}
	if e.Width, err = parseFloat(h, "width"); err != nil {
		return e, fmt.Errorf("%s: %w", EdgeHash, err)
	}
	return e, nil
}

// parseDistances reads d0, d1, ... up to the first missing index.
func parseDistances(h map[string]string) ([]float64, error) {
	out := make([]float64, 0, len(h))
	for i := 0; ; i++ {
		key := "d" + strconv.Itoa(i)
		if _, ok := h[key]; !ok {
			return out, nil
		}
		v, err := parseFloat(h, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", DistHash, err)
		}
		out = append(out, v)
	}
}

func parseFloat(h map[string]string, field string) (float64, error) {
	raw, ok := h[field]
	if !ok {
		return 0, fmt.Errorf("missing field %q", field)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}

func (b *RobotBridge) Edge() mission.EdgeReading { return b.edge }

func (b *RobotBridge) Distances() []float64 { return b.distances }

func (b *RobotBridge) Distance() float64 { return b.dist - b.originDist }

func (b *RobotBridge) Heading() float64 { return b.heading - b.originHeading }

// Reset moves the origin to the last sampled pose, so reads are 0 until the
// next Sample and repeated resets change nothing. Before any Sample the
// origin is deferred to the first one.
func (b *RobotBridge) Reset() {
	if !b.sampled {
		b.pendingOrigin = true
		return
	}
	b.originDist = b.dist
	b.originHeading = b.heading
}

func (b *RobotBridge) SetCalibrationProfile(p config.CalibrationProfile) {
	b.push(EdgeCommandKey, "calibrate "+p.String())
}

func (b *RobotBridge) SetVelocity(v float64) {
	b.push(MixerKey, fmt.Sprintf("vel %.4f", v))
}

func (b *RobotBridge) SetTurnrate(w float64) {
	b.push(MixerKey, fmt.Sprintf("tr %.4f", w))
}

func (b *RobotBridge) SetDesiredHeading(theta float64) {
	b.push(MixerKey, fmt.Sprintf("heading %.4f", theta))
}

func (b *RobotBridge) SetEdgeMode(useLeft bool, offset float64) {
	side := "right"
	if useLeft {
		side = "left"
	}
	b.push(MixerKey, fmt.Sprintf("edge %s %.4f", side, offset))
}

func (b *RobotBridge) SetManualControl(enabled bool, v, w float64) {
	mode := "off"
	if enabled {
		mode = "on"
	}
	b.push(MixerKey, fmt.Sprintf("manual %s %.4f %.4f", mode, v, w))
}

func (b *RobotBridge) SetMaxTurnrate(limit float64) {
	b.push(MixerKey, fmt.Sprintf("maxtr %.4f", limit))
}

// push queues a command. Failures are logged and dropped; the mission keeps
// ticking and the next command may get through.
func (b *RobotBridge) push(key, cmd string) {
	if err := b.client.LPush(b.ctx, key, cmd).Err(); err != nil {
		if b.warnLimit.Allow() {
			b.logger.Warnf("Failed to send '%s' to %s: %v", cmd, key, err)
		}
		return
	}
	b.logger.Debugf("Sent '%s' to %s", cmd, key)
}
