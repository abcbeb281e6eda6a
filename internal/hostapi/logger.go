package hostapi

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// LogLevel mirrors the plugin ABI's log level enum.
type LogLevel int

const (
	LogTrace LogLevel = iota
	LogDebug
	LogInfo
	LogWarn
	LogError
)

// DefaultLogRateLimit is the per-plugin messages/second ceiling spec.md
// §4.6 names as the default (1000 msgs/sec).
const DefaultLogRateLimit = 1000

// LoggerBroker backs the plugin-facing "logger" import: log(level,
// message). No capability is required; every message is prefixed with the
// plugin id (grounded on the original host's logger.rs, which tags every
// tracing line with `plugin_id = %self.plugin_id`), and each plugin is
// independently rate-limited so one chatty plugin cannot flood the host log.
type LoggerBroker struct {
	base      *slog.Logger
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewLoggerBroker constructs a broker logging through base, rate-limiting
// each plugin to msgsPerSecond (DefaultLogRateLimit if <= 0).
func NewLoggerBroker(base *slog.Logger, msgsPerSecond int) *LoggerBroker {
	if msgsPerSecond <= 0 {
		msgsPerSecond = DefaultLogRateLimit
	}
	return &LoggerBroker{
		base:     base,
		limit:    rate.Limit(msgsPerSecond),
		burst:    msgsPerSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Log implements the "logger.log" host function. Messages exceeding the
// plugin's rate budget are dropped silently from the plugin's perspective —
// the host function never fails visibly, matching spec.md §4.6's "never
// panics, never traps" framing for broker functions.
func (b *LoggerBroker) Log(pluginID string, level LogLevel, message string) {
	if !b.limiterFor(pluginID).Allow() {
		return
	}
	attrs := slog.String("plugin_id", pluginID)
	switch level {
	case LogTrace, LogDebug:
		b.base.Debug(message, attrs)
	case LogInfo:
		b.base.Info(message, attrs)
	case LogWarn:
		b.base.Warn(message, attrs)
	case LogError:
		b.base.Error(message, attrs)
	}
}

func (b *LoggerBroker) limiterFor(pluginID string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	lim, ok := b.limiters[pluginID]
	if !ok {
		lim = rate.NewLimiter(b.limit, b.burst)
		b.limiters[pluginID] = lim
	}
	return lim
}
