package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisGeoKey  = "gps:positions"
	DefaultRedisChannel = "gps:fixes"
)

// RedisConfig configures the Redis fan-out.
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	GeoKey  string `mapstructure:"geo_key"`
	Channel string `mapstructure:"channel"`
	Device  string `mapstructure:"device"` // member name in the GEO set
}

// geoPublisher is the subset of *redis.Client used by RedisSink.
type geoPublisher interface {
	GeoAdd(ctx context.Context, key string, geoLocation ...*redis.GeoLocation) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink keeps the device's latest position in a GEO set and publishes
// every fix on a pub/sub channel.
type RedisSink struct {
	client geoPublisher
	cfg    RedisConfig
	now    func() time.Time
	lg     *log.Logger
}

func NewRedisSink(cfg RedisConfig, lg *log.Logger) *RedisSink {
	return newRedisSink(redis.NewClient(&redis.Options{Addr: cfg.Addr}), cfg, lg)
}

func newRedisSink(client geoPublisher, cfg RedisConfig, lg *log.Logger) *RedisSink {
	if cfg.GeoKey == "" {
		cfg.GeoKey = DefaultRedisGeoKey
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Device == "" {
		cfg.Device = "simulator"
	}
	return &RedisSink{client: client, cfg: cfg, now: time.Now, lg: lg}
}

func (s *RedisSink) Send(ctx context.Context, p gps.SimulationPoint) error {
	err := s.client.GeoAdd(ctx, s.cfg.GeoKey, &redis.GeoLocation{
		Name:      s.cfg.Device,
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis geoadd: %w", err)
	}

	payload, err := json.Marshal(newMessage(s.cfg.Device, p, s.now()))
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.cfg.Channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
