// Package config loads engine configuration from an optional TOML
// file, overridable by command-line flags.
//
// Follows a flat struct of tuning knobs with documented defaults,
// loaded via github.com/BurntSushi/toml.
package config

import (
	"flag"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

// Config collects every tunable the engine recognizes.
type Config struct {
	// MaxPlayers rejects further joins with JoinResponse{reason=Full}
	// once the roster reaches this size.
	MaxPlayers int `toml:"max_players"`
	// FrameRateHz is the timing driver's target ticks per second.
	FrameRateHz int `toml:"frame_rate_hz"`
	// TrailingDelays is the TSS state delay vector; element 0 must be 0
	// and the vector must be strictly increasing.
	TrailingDelays []int64 `toml:"trailing_delays"`
	// HashCadence is the number of frames between desync-check hash
	// broadcasts.
	HashCadence int64 `toml:"hash_cadence"`
	// HashHistory bounds how many past hash reports a peer retains for
	// comparison against a late-arriving peer hash.
	HashHistory int `toml:"hash_history"`
	// PingIntervalMs is the protocol ping frequency.
	PingIntervalMs int `toml:"ping_interval_ms"`
	// TotalTimeoutMs is the acked-message deadline before the
	// per-endpoint connection is torn down.
	TotalTimeoutMs int `toml:"total_timeout_ms"`
	// JoinTimeoutMs is how long a joining client waits for a
	// JoinResponse before reverting to Unconnected.
	JoinTimeoutMs int `toml:"join_timeout_ms"`
	// SamplerSize is the window length for ping/throughput statistics.
	SamplerSize int `toml:"sampler_size"`
	// Port is the UDP port a host binds, or the port a client's own
	// endpoint binds before dialing a host.
	Port int `toml:"port"`
}

// Default returns a single sensible baseline configuration.
func Default() Config {
	return Config{
		MaxPlayers:     4,
		FrameRateHz:    60,
		TrailingDelays: []int64{0, 20},
		HashCadence:    256,
		HashHistory:    8,
		PingIntervalMs: 1000,
		TotalTimeoutMs: 10000,
		JoinTimeoutMs:  10000,
		SamplerSize:    32,
		Port:           7777,
	}
}

// LoadFile overlays path's TOML contents onto cfg's current values. A
// missing file is not an error since the TOML file is optional; any
// other read or parse failure is.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return engineerr.Wrap(engineerr.Decode, "config: decoding "+path, err)
	}
	return nil
}

// BindFlags registers cfg's fields on fs, seeded with cfg's current
// values as defaults, so CLI flags override whatever LoadFile (or
// Default) already set.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "reject joins once the roster reaches this size")
	fs.IntVar(&cfg.FrameRateHz, "frame-rate-hz", cfg.FrameRateHz, "timing driver target ticks per second")
	fs.Int64Var(&cfg.HashCadence, "hash-cadence", cfg.HashCadence, "frames between desync-check hash broadcasts")
	fs.IntVar(&cfg.HashHistory, "hash-history", cfg.HashHistory, "number of past hash reports retained for comparison")
	fs.IntVar(&cfg.PingIntervalMs, "ping-interval-ms", cfg.PingIntervalMs, "protocol ping frequency")
	fs.IntVar(&cfg.TotalTimeoutMs, "total-timeout-ms", cfg.TotalTimeoutMs, "acked-message deadline before teardown")
	fs.IntVar(&cfg.JoinTimeoutMs, "join-timeout-ms", cfg.JoinTimeoutMs, "client join deadline before reverting to Unconnected")
	fs.IntVar(&cfg.SamplerSize, "sampler-size", cfg.SamplerSize, "window size for ping/throughput statistics")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "UDP port to bind")
	// TrailingDelays has no flag equivalent: a slice-valued flag would
	// need a custom delimiter convention the rest of the CLI surface
	// doesn't otherwise use. It is TOML-file-only.
}

// Validate reports whether cfg's values are internally consistent
// enough to construct a scheduler and endpoint from.
func Validate(cfg Config) error {
	if len(cfg.TrailingDelays) == 0 || cfg.TrailingDelays[0] != 0 {
		return engineerr.New(engineerr.Decode, "config: trailing_delays must start with 0")
	}
	for i := 1; i < len(cfg.TrailingDelays); i++ {
		if cfg.TrailingDelays[i] <= cfg.TrailingDelays[i-1] {
			return engineerr.New(engineerr.Decode, "config: trailing_delays must be strictly increasing")
		}
	}
	if cfg.MaxPlayers <= 0 {
		return engineerr.New(engineerr.Decode, "config: max_players must be positive")
	}
	if cfg.FrameRateHz <= 0 {
		return engineerr.New(engineerr.Decode, "config: frame_rate_hz must be positive")
	}
	return nil
}
