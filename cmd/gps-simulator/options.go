package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/Bucknalla/go-route-simulator/routing"
	"github.com/Bucknalla/go-route-simulator/sink"
	"github.com/Bucknalla/go-route-simulator/web/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options is everything a command reads from flags, the environment and
// the config file. Nested sections match the YAML layout:
//
//	simulation:
//	  delay_between_emissions: 500ms
//	google:
//	  api_key: ...
//	kafka:
//	  brokers: [localhost:9092]
type options struct {
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`

	Simulation gps.Config           `mapstructure:"simulation"`
	Google     routing.GoogleConfig `mapstructure:"google"`
	Kafka      sink.KafkaConfig     `mapstructure:"kafka"`
	Redis      sink.RedisConfig     `mapstructure:"redis"`

	Origin      string        `mapstructure:"origin"`
	Destination string        `mapstructure:"destination"`
	GPX         string        `mapstructure:"gpx"`
	Router      string        `mapstructure:"router"`
	CacheSize   int           `mapstructure:"cache_size"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Seed        int64         `mapstructure:"seed"`
	Satellites  int           `mapstructure:"satellites"`
	Serial      string        `mapstructure:"serial"`
	Baud        int           `mapstructure:"baud"`
	Quiet       bool          `mapstructure:"quiet"`
	RecordGPX   string        `mapstructure:"record_gpx"`
	Device      string        `mapstructure:"device"`
	Addr        string        `mapstructure:"addr"`
	StaticDir   string        `mapstructure:"static_dir"`
}

// flagKeys maps flag names onto configuration keys where the two differ.
// Any other flag uses its own name with dashes replaced by underscores.
var flagKeys = map[string]string{
	"realistic":        "simulation.use_realistic_timing",
	"delay":            "simulation.delay_between_emissions",
	"distance":         "simulation.distance_between_emissions",
	"loop":             "simulation.loop_indefinitely",
	"speed-multiplier": "simulation.speed_multiplier",
	"noise":            "simulation.noise_level_in_meters",
	"google-api-key":   "google.api_key",
	"travel-mode":      "google.mode",
	"language":         "google.language",
	"region":           "google.region",
	"kafka-brokers":    "kafka.brokers",
	"kafka-topic":      "kafka.topic",
	"redis-addr":       "redis.addr",
	"redis-key":        "redis.geo_key",
	"redis-channel":    "redis.channel",
}

func configKey(flag string) string {
	if key, ok := flagKeys[flag]; ok {
		return key
	}
	return strings.ReplaceAll(flag, "-", "_")
}

// addSimulationFlags registers the flags shared by play and serve.
func addSimulationFlags(cmd *cobra.Command) {
	def := gps.DefaultConfig()
	f := cmd.Flags()

	f.Bool("realistic", def.UseRealisticTiming, "Pace fixes by the route's elapsed travel times instead of a fixed delay")
	f.Duration("delay", def.DelayBetweenEmissions, "Delay between fixes with fixed timing")
	f.Float64("distance", def.DistanceBetweenEmissions, "Nominal distance between fixes in meters")
	f.Bool("loop", def.LoopIndefinitely, "Replay the route until stopped")
	f.Float64("speed-multiplier", def.SpeedMultiplier, "Playback speed with realistic timing (2.0=twice as fast)")
	f.Float64("noise", def.NoiseLevelInMeters, "Maximum random position error in meters")
	f.Int64("seed", 0, "Random seed for noise and satellites (0 picks one from the clock)")

	f.String("router", "straight", "Route planner: straight or google")
	f.String("google-api-key", "", "Google Maps Platform API key")
	f.String("travel-mode", "driving", "Google travel mode: driving, walking, bicycling or transit")
	f.String("language", "", "Language for Google results")
	f.String("region", "", "Region bias for Google results")
	f.Int("cache-size", 128, "Number of planned routes to cache")
	f.Duration("cache-ttl", time.Hour, "How long planned routes stay cached")

	f.Int("satellites", gps.DefaultSatellites, "Number of satellites to simulate (4-12)")
	f.String("serial", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	f.Int("baud", 9600, "Serial port baud rate")
	f.String("record-gpx", "", "Record emitted fixes to this GPX file")
	f.StringSlice("kafka-brokers", nil, "Publish fixes to these Kafka brokers")
	f.String("kafka-topic", "gps-fixes", "Kafka topic for fixes")
	f.String("redis-addr", "", "Publish fixes to the Redis server at this address")
	f.String("redis-key", sink.DefaultRedisGeoKey, "Redis GEO set holding the latest position")
	f.String("redis-channel", sink.DefaultRedisChannel, "Redis channel fixes are published on")
	f.String("device", "simulator", "Device name attached to published fixes")
}

// loadOptions binds the flags of cmd to v and decodes the merged settings.
func loadOptions(v *viper.Viper, cmd *cobra.Command) (options, error) {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(configKey(f.Name), f)
	})
	if bindErr != nil {
		return options{}, bindErr
	}

	var o options
	if err := v.Unmarshal(&o); err != nil {
		return options{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if o.Kafka.Device == "" {
		o.Kafka.Device = o.Device
	}
	if o.Redis.Device == "" {
		o.Redis.Device = o.Device
	}
	if err := o.validate(); err != nil {
		return options{}, err
	}
	return o, nil
}

func (o options) validate() error {
	if err := o.Simulation.Validate(); err != nil {
		return err
	}
	if o.Satellites < 4 || o.Satellites > 12 {
		return fmt.Errorf("number of satellites must be between 4 and 12")
	}
	if o.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	switch o.Router {
	case "straight", "google":
	default:
		return fmt.Errorf("unknown router %q: use straight or google", o.Router)
	}
	if o.Router == "google" && o.Google.APIKey == "" {
		return fmt.Errorf("the google router requires --google-api-key or %s_GOOGLE_API_KEY", envPrefix)
	}
	return nil
}

func (o options) logger() *log.Logger {
	return log.New(o.LogLevel, o.LogDir)
}

func (o options) seed() int64 {
	if o.Seed != 0 {
		return o.Seed
	}
	return time.Now().UnixNano()
}

// routeSources returns the route planner and, when Google is configured,
// the place lookup service.
func (o options) routeSources(lg *log.Logger) (gps.RouteSource, server.Places, error) {
	if o.Router != "google" {
		return routing.NewCachedSource(routing.NewStraightLine(), o.CacheSize, o.CacheTTL, lg), nil, nil
	}

	directions, err := routing.NewGoogleRouteService(o.Google, lg)
	if err != nil {
		return nil, nil, err
	}
	places, err := routing.NewGooglePlaces(o.Google, lg)
	if err != nil {
		return nil, nil, err
	}
	return routing.NewCachedSource(directions, o.CacheSize, o.CacheTTL, lg), places, nil
}

// sinks opens every configured output. NMEA goes to the serial port when
// one is named, otherwise to nmeaOut unless that is nil.
func (o options) sinks(nmeaOut io.Writer, lg *log.Logger) (sink.Multi, error) {
	var out sink.Multi
	fail := func(err error) (sink.Multi, error) {
		out.Close()
		return nil, err
	}

	enc := gps.NewNMEAEncoder(o.Satellites, o.seed())
	switch {
	case o.Serial != "":
		s, err := sink.NewSerialSink(o.Serial, o.Baud, enc)
		if err != nil {
			return fail(err)
		}
		lg.Infof("NMEA output: %s (%d baud)", o.Serial, o.Baud)
		out = append(out, s)
	case nmeaOut != nil:
		out = append(out, sink.NewNMEASink(nmeaOut, enc))
	}

	if o.RecordGPX != "" {
		s, err := sink.NewGPXSink(o.RecordGPX)
		if err != nil {
			return fail(err)
		}
		lg.Infof("GPX output: %s", o.RecordGPX)
		out = append(out, s)
	}
	if len(o.Kafka.Brokers) > 0 {
		s, err := sink.NewKafkaSink(o.Kafka, lg)
		if err != nil {
			return fail(err)
		}
		out = append(out, s)
	}
	if o.Redis.Addr != "" {
		out = append(out, sink.NewRedisSink(o.Redis, lg))
	}
	return out, nil
}
