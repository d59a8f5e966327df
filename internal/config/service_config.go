package config

import "time"

type ServiceConfig struct {
	Version         string `mapstructure:"version,omitempty"`
	Build           string `mapstructure:"build,omitempty"`
	BuildDate       string `mapstructure:"build_date,omitempty"`
	Port            int    `mapstructure:"port,omitempty"`
	ReadyFile       string `mapstructure:"ready_file"`
	TerminationFile string `mapstructure:"termination_file"`
	LocalMode       bool   `mapstructure:"local_mode,omitempty"`
}

// QueueConfig tunes the scheduler. All values have working defaults so the
// section can be omitted entirely.
type QueueConfig struct {
	// CancelGracePeriod bounds how long a cancelled run may stay in the
	// running state while the executor finishes its in-flight call.
	CancelGracePeriod time.Duration `mapstructure:"cancel_grace_period,omitempty"`
	// ETAThroughput is the assumed samples-per-second used by the advisory
	// queue ETA. It never gates scheduling.
	ETAThroughput float64 `mapstructure:"eta_throughput,omitempty"`
	// HeartbeatInterval is the websocket ping cadence of the push gateway.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval,omitempty"`
}

const (
	DefaultCancelGracePeriod = 30 * time.Second
	DefaultETAThroughput     = 2.0
	DefaultHeartbeatInterval = 15 * time.Second
)

// WithDefaults returns a copy with zero fields replaced by defaults.
func (q QueueConfig) WithDefaults() QueueConfig {
	if q.CancelGracePeriod <= 0 {
		q.CancelGracePeriod = DefaultCancelGracePeriod
	}
	if q.ETAThroughput <= 0 {
		q.ETAThroughput = DefaultETAThroughput
	}
	if q.HeartbeatInterval <= 0 {
		q.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return q
}

type Config struct {
	Service  *ServiceConfig  `mapstructure:"service"`
	Queue    *QueueConfig    `mapstructure:"queue,omitempty"`
	Database *map[string]any `mapstructure:"database,omitempty"`
}
