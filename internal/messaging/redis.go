package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"robobot-mission/internal/logger"
	"robobot-mission/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis keys shared with the robot service and operator tools.
const (
	CommandKey    = "mission:command"
	StatusHash    = "mission"
	StatusChannel = "mission"
)

type Callbacks struct {
	CommandCallback func(string) error // "start", "stop", "reset"
}

type RedisClient struct {
	client      *redis.Client
	callbacks   Callbacks
	logger      *logger.Logger
	pollTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewRedisClient(host string, port, db int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	return NewRedisClientWithOptions(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
		DB:   db,
	}, l, callbacks)
}

// NewRedisClientWithOptions is used by tests to point the client at miniredis.
func NewRedisClientWithOptions(opts *redis.Options, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client:      redis.NewClient(opts),
		callbacks:   callbacks,
		logger:      l.WithTag("redis"),
		pollTimeout: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

// Client exposes the connection so the robot bridge shares it.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Errorf("Redis connection failed: %v", err)
		return fmt.Errorf("redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts the command listener once the service is ready to act on commands.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(1)
	go r.listCommandListener(CommandKey, r.handleMissionCommand)
	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
		}

		// BRPOP with a timeout so cancellation is noticed between commands
		result, err := r.client.BRPop(r.ctx, r.pollTimeout, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if r.ctx.Err() != nil {
				r.logger.Infof("Context cancelled, exiting %s listener", key)
				return
			}
			r.logger.Warnf("Error reading from %s list: %v", key, err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if len(result) >= 2 { // BRPOP returns [key, value]
			value := result[1]
			r.logger.Debugf("Received command from %s: %s", key, value)
			if err := handler(value); err != nil {
				r.logger.Warnf("Error handling %s command: %v", key, err)
			}
		}
	}
}

func (r *RedisClient) handleMissionCommand(value string) error {
	if r.callbacks.CommandCallback == nil {
		return nil
	}
	switch value {
	case "start", "stop", "reset":
		return r.callbacks.CommandCallback(value)
	default:
		r.logger.Infof("Invalid mission command value: %s", value)
		return fmt.Errorf("invalid mission command: %s", value)
	}
}

// PublishMissionStatus writes the snapshot to the mission hash and notifies
// subscribers with the name of the field that triggered the update.
func (r *RedisClient) PublishMissionStatus(status types.MissionStatus, field string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, StatusHash, map[string]interface{}{
		"lifecycle": string(status.Lifecycle),
		"run-id":    status.RunID,
		"state":     string(status.State),
		"sub":       status.Sub,
		"outcome":   string(status.Outcome),
		"distance":  strconv.FormatFloat(status.Distance, 'f', 3, 64),
		"heading":   strconv.FormatFloat(status.Heading, 'f', 3, 64),
		"timestamp": status.Timestamp.Format(time.RFC3339Nano),
	})
	pipe.Publish(r.ctx, StatusChannel, field)
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish mission status: %v", err)
		return err
	}
	return nil
}

// GetHashField reads a field from a Redis hash using HGET
func (r *RedisClient) GetHashField(hash, field string) (string, error) {
	value, err := r.client.HGet(r.ctx, hash, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get hash field %s from %s: %w", field, hash, err)
	}
	return value, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
