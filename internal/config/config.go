// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all engine and server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
// Invalid configurations are rejected eagerly at construction time, never
// discovered at call time.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// ALGORITHM SELECTOR CONFIGURATION
// =============================================================================

// SelectorConfig holds the algorithm selection thresholds.
type SelectorConfig struct {
	// TNaive: below this object count the all-pairs scan wins, because the
	// constant overhead of building a spatial index exceeds the quadratic
	// scan cost at this scale.
	TNaive int

	// TSpatial: at or above this object count, overlap-heavy workloads are
	// routed to the spatial hash + union-find combination so connected
	// components come out of the same pass.
	TSpatial int

	// OverlapHeavy is the overlap-ratio estimate at which a workload counts
	// as cluster-heavy.
	OverlapHeavy float64

	// HistorySize is the capacity of the rolling decision history used for
	// offline threshold tuning.
	HistorySize int
}

// DefaultSelector returns the default selection thresholds.
func DefaultSelector() SelectorConfig {
	return SelectorConfig{
		TNaive:       25,
		TSpatial:     150,
		OverlapHeavy: 0.25,
		HistorySize:  256,
	}
}

// SelectorFromEnv returns selector configuration with environment overrides.
func SelectorFromEnv() SelectorConfig {
	cfg := DefaultSelector()

	if v := getEnvInt("SELECTOR_T_NAIVE", 0); v > 0 {
		cfg.TNaive = v
	}
	if v := getEnvInt("SELECTOR_T_SPATIAL", 0); v > 0 {
		cfg.TSpatial = v
	}
	if v := getEnvFloat("SELECTOR_OVERLAP_HEAVY", -1); v >= 0 {
		cfg.OverlapHeavy = v
	}

	return cfg
}

// Validate rejects threshold combinations that would silently misroute
// workloads at call time.
func (c SelectorConfig) Validate() error {
	if c.TNaive < 0 || c.TSpatial < 0 {
		return fmt.Errorf("%w: negative selector threshold (TNaive=%d, TSpatial=%d)", ErrInvalidConfig, c.TNaive, c.TSpatial)
	}
	if c.TNaive > c.TSpatial {
		return fmt.Errorf("%w: TNaive (%d) must not exceed TSpatial (%d)", ErrInvalidConfig, c.TNaive, c.TSpatial)
	}
	if c.OverlapHeavy < 0 || c.OverlapHeavy > 1 {
		return fmt.Errorf("%w: OverlapHeavy (%g) must be in [0,1]", ErrInvalidConfig, c.OverlapHeavy)
	}
	return nil
}

// =============================================================================
// RESULT CACHE CONFIGURATION
// =============================================================================

// CacheConfig holds result cache settings. The cache is strictly a latency
// optimization: disabling it never changes detection results.
type CacheConfig struct {
	Enabled  bool
	Capacity int           // Max entries before LRU eviction (0 = unbounded, TTL must then be set)
	TTL      time.Duration // Entry lifetime (0 = no expiry, Capacity must then be set)
}

// DefaultCache returns the default cache configuration.
func DefaultCache() CacheConfig {
	return CacheConfig{
		Enabled:  true,
		Capacity: 128,
		TTL:      0, // LRU only by default
	}
}

// CacheFromEnv returns cache configuration with environment overrides.
func CacheFromEnv() CacheConfig {
	cfg := DefaultCache()

	if os.Getenv("CACHE_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if v := getEnvInt("CACHE_CAPACITY", -1); v >= 0 {
		cfg.Capacity = v
	}
	if v := getEnvInt("CACHE_TTL_MS", -1); v >= 0 {
		cfg.TTL = time.Duration(v) * time.Millisecond
	}

	return cfg
}

// Validate requires at least one bounding policy on an enabled cache.
func (c CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Capacity < 0 {
		return fmt.Errorf("%w: negative cache capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: negative cache TTL %s", ErrInvalidConfig, c.TTL)
	}
	if c.Capacity == 0 && c.TTL == 0 {
		return fmt.Errorf("%w: enabled cache needs a capacity or a TTL", ErrInvalidConfig)
	}
	return nil
}

// =============================================================================
// MEMORY POOL CONFIGURATION
// =============================================================================

// PoolConfig holds memory pool settings. Pool exhaustion is never an
// error: acquisition always falls back to direct construction.
type PoolConfig struct {
	Enabled    bool
	MaxPerKind int // Free-list cap per resource kind; releases beyond it drop the instance
}

// DefaultPool returns the default pool configuration.
func DefaultPool() PoolConfig {
	return PoolConfig{
		Enabled:    true,
		MaxPerKind: 8,
	}
}

// PoolFromEnv returns pool configuration with environment overrides.
func PoolFromEnv() PoolConfig {
	cfg := DefaultPool()

	if os.Getenv("POOL_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if v := getEnvInt("POOL_MAX_PER_KIND", 0); v > 0 {
		cfg.MaxPerKind = v
	}

	return cfg
}

// Validate rejects nonsensical pool bounds.
func (c PoolConfig) Validate() error {
	if c.Enabled && c.MaxPerKind <= 0 {
		return fmt.Errorf("%w: enabled pool needs MaxPerKind > 0, got %d", ErrInvalidConfig, c.MaxPerKind)
	}
	return nil
}

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// EngineConfig holds the complete collision engine configuration.
type EngineConfig struct {
	// CellSize is the spatial grid cell size. Zero selects one per call:
	// close to the median object dimension of the input.
	CellSize float64

	// MaxObjectsPerCell is advisory, unused by the algorithms. Compare it
	// against GridStats.MaxInCell when tuning CellSize offline.
	MaxObjectsPerCell int

	// BatchUnionSize buffers union operations in chunks of this many pairs.
	// Zero applies each union immediately.
	BatchUnionSize int

	Selector SelectorConfig
	Cache    CacheConfig
	Pool     PoolConfig
}

// DefaultEngine returns the default engine configuration.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		CellSize:          0, // auto: median object dimension
		MaxObjectsPerCell: 16,
		BatchUnionSize:    64,
		Selector:          DefaultSelector(),
		Cache:             DefaultCache(),
		Pool:              DefaultPool(),
	}
}

// EngineFromEnv returns engine configuration with environment overrides.
func EngineFromEnv() EngineConfig {
	cfg := DefaultEngine()

	if v := getEnvFloat("GRID_CELL_SIZE", 0); v > 0 {
		cfg.CellSize = v
	}
	if v := getEnvInt("BATCH_UNION_SIZE", -1); v >= 0 {
		cfg.BatchUnionSize = v
	}
	cfg.Selector = SelectorFromEnv()
	cfg.Cache = CacheFromEnv()
	cfg.Pool = PoolFromEnv()

	return cfg
}

// Validate checks the whole engine configuration eagerly.
func (c EngineConfig) Validate() error {
	if c.CellSize < 0 {
		return fmt.Errorf("%w: negative cell size %g", ErrInvalidConfig, c.CellSize)
	}
	if c.BatchUnionSize < 0 {
		return fmt.Errorf("%w: negative batch union size %d", ErrInvalidConfig, c.BatchUnionSize)
	}
	if err := c.Selector.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Pool.Validate()
}

// =============================================================================
// MONITOR CONFIGURATION
// =============================================================================

// MonitorConfig holds performance monitor settings.
type MonitorConfig struct {
	WindowSize     int     // Sample ring capacity
	RecentSize     int     // Trailing samples compared against the baseline
	DegradedFactor float64 // Degraded when recent p95 > factor * baseline p95
}

// DefaultMonitor returns the default monitor configuration.
func DefaultMonitor() MonitorConfig {
	return MonitorConfig{
		WindowSize:     512,
		RecentSize:     64,
		DegradedFactor: 2.0,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	MaxBodyBytes int64 // Request body cap for the detect endpoints
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		MaxBodyBytes: 4 << 20, // 4 MiB of AABBs is far beyond interactive workloads
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Engine  EngineConfig
	Monitor MonitorConfig
	Server  ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Engine:  EngineFromEnv(),
		Monitor: DefaultMonitor(),
		Server:  ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
