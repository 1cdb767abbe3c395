package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	bh "github.com/decentrust/decentrust/behaviour"
	"github.com/decentrust/decentrust/bucket"
	"github.com/decentrust/decentrust/libs/log"
	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/sketch"
	"github.com/decentrust/decentrust/trust"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultDecentrustDir = ".decentrust"
	defaultConfigDir     = "config"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for a decentrust tracker
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Trust           *TrustConfig           `mapstructure:"trust"`
	Bucket          *BucketConfig          `mapstructure:"bucket"`
	Behaviour       *BehaviourConfig       `mapstructure:"behaviour"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Trust:           DefaultTrustConfig(),
		Bucket:          DefaultBucketConfig(),
		Behaviour:       DefaultBehaviourConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Trust:           TestTrustConfig(),
		Bucket:          TestBucketConfig(),
		Behaviour:       TestBehaviourConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Trust.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [trust] section")
	}
	if err := cfg.Bucket.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [bucket] section")
	}
	if err := cfg.Behaviour.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [behaviour] section")
	}
	return errors.Wrap(
		cfg.Instrumentation.ValidateBasic(),
		"error in [instrumentation] section",
	)
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this tracker
	Moniker string `mapstructure:"moniker"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`
}

// DefaultBaseConfig returns a default base configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.Moniker = "decentrust_test"
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// ConfigFile returns the full path to the config.toml file
func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	return nil
}

//-----------------------------------------------------------------------------
// TrustConfig

// TrustConfig defines how the trust tracker is built.
type TrustConfig struct {
	// Backend: exact | sketch
	Mode string `mapstructure:"mode"`

	// Sketch dimensions. When both are zero the sketch is sized from
	// error_bound, probability and max_entries instead.
	Width int `mapstructure:"width"`
	Depth int `mapstructure:"depth"`

	// Overestimation of any estimate stays within error_bound out of
	// max_entries total mass with probability at least 1 - probability.
	ErrorBound  float64 `mapstructure:"error_bound"`
	Probability float64 `mapstructure:"probability"`
	MaxEntries  float64 `mapstructure:"max_entries"`

	// Raw trust is kept within [min, max]. A max of 0 means no upper bound.
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`

	// Sketch row hashing: offset | seeded
	Hash string `mapstructure:"hash"`

	// How often a running tracker logs a summary. 0 disables the report.
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// DefaultTrustConfig returns a default configuration for the tracker.
func DefaultTrustConfig() *TrustConfig {
	return &TrustConfig{
		Mode:           string(trust.ModeSketch),
		ErrorBound:     50,
		Probability:    0.0001,
		MaxEntries:     3000,
		Hash:           string(sketch.HashOffset),
		ReportInterval: 10 * time.Second,
	}
}

// TestTrustConfig returns a configuration for testing the tracker.
func TestTrustConfig() *TrustConfig {
	cfg := DefaultTrustConfig()
	cfg.Mode = string(trust.ModeExact)
	cfg.ReportInterval = 0
	return cfg
}

// Bounds returns the bounds raw trust is kept within.
func (cfg *TrustConfig) Bounds() tmmath.Bounds[float64] {
	max := cfg.Max
	if max == 0 {
		max = math.MaxFloat64
	}
	return tmmath.Bounds[float64]{Min: cfg.Min, Max: max}
}

// Params returns the tracker construction parameters.
func (cfg *TrustConfig) Params() trust.Params[float64] {
	mode, err := trust.ParseMode(cfg.Mode)
	if err != nil {
		// left as is so that trust.New reports it
		mode = trust.Mode(cfg.Mode)
	}
	return trust.Params[float64]{
		Mode:        mode,
		Bounds:      cfg.Bounds(),
		Width:       cfg.Width,
		Depth:       cfg.Depth,
		ErrorBound:  cfg.ErrorBound,
		Probability: cfg.Probability,
		MaxEntries:  cfg.MaxEntries,
		Hash:        sketch.HashKind(cfg.Hash),
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *TrustConfig) ValidateBasic() error {
	mode, err := trust.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	bounds := cfg.Bounds()
	if err := bounds.ValidateBasic(); err != nil {
		return errors.Wrap(err, "invalid min/max")
	}
	if !bounds.Contains(0) {
		return errors.New("min/max must contain 0")
	}
	if cfg.ReportInterval < 0 {
		return errors.New("report_interval can't be negative")
	}
	if mode != trust.ModeSketch {
		return nil
	}

	switch sketch.HashKind(cfg.Hash) {
	case sketch.HashOffset, sketch.HashSeeded:
	default:
		return fmt.Errorf("unknown hash %q (must be 'offset' or 'seeded')", cfg.Hash)
	}
	if cfg.Width != 0 || cfg.Depth != 0 {
		if cfg.Width < 1 || cfg.Depth < 1 {
			return errors.New("width and depth must both be positive")
		}
		return nil
	}
	if cfg.ErrorBound == 0 && cfg.Probability == 0 && cfg.MaxEntries == 0 {
		return nil
	}
	_, _, err = sketch.Dimensions(cfg.ErrorBound, cfg.Probability, cfg.MaxEntries)
	return err
}

//-----------------------------------------------------------------------------
// BucketConfig

const (
	BucketFixedWidth = "fixed_width"
	BucketLinear     = "linear"
	BucketThreshold  = "threshold"

	ViewRawLocal         = "raw_local"
	ViewNormalizedLocal  = "normalized_local"
	ViewRawGlobal        = "raw_global"
	ViewNormalizedGlobal = "normalized_global"
)

// BucketConfig defines how trust values map to election tiers.
type BucketConfig struct {
	// Bucketizer: fixed_width | linear | threshold
	Kind string `mapstructure:"kind"`

	// Which values are bucketized:
	// raw_local | normalized_local | raw_global | normalized_global
	View string `mapstructure:"view"`

	// fixed_width: tier = floor((v - min) / width)
	Width float64 `mapstructure:"width"`

	// fixed_width and linear lower bound, linear upper bound
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`

	// linear: number of tiers
	Buckets int `mapstructure:"buckets"`

	// threshold: ascending cut points
	Thresholds []float64 `mapstructure:"thresholds"`
}

// DefaultBucketConfig returns a default bucket configuration.
func DefaultBucketConfig() *BucketConfig {
	return &BucketConfig{
		Kind:       BucketFixedWidth,
		View:       ViewNormalizedGlobal,
		Width:      0.05,
		Max:        1,
		Buckets:    10,
		Thresholds: []float64{0.1, 0.25, 0.5},
	}
}

// TestBucketConfig returns a bucket configuration for testing.
func TestBucketConfig() *BucketConfig {
	return DefaultBucketConfig()
}

// Bucketizer builds the configured bucketizer.
func (cfg *BucketConfig) Bucketizer() (trust.Bucketizer[float64], error) {
	var (
		b   trust.Bucketizer[float64]
		err error
	)
	switch cfg.Kind {
	case BucketFixedWidth:
		b, err = bucket.NewFixedWidth(cfg.Width, cfg.Min)
	case BucketLinear:
		b, err = bucket.NewLinear(cfg.Min, cfg.Max, cfg.Buckets)
	case BucketThreshold:
		b, err = bucket.NewThreshold(cfg.Thresholds...)
	default:
		return nil, fmt.Errorf("unknown bucket kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Bucketize buckets keys on the configured view of t.
func (cfg *BucketConfig) Bucketize(t trust.Tracker[bh.PeerID, float64], keys []bh.PeerID) (map[bh.PeerID]int, error) {
	b, err := cfg.Bucketizer()
	if err != nil {
		return nil, err
	}
	switch cfg.View {
	case ViewRawLocal:
		return trust.BucketizeLocal(t, keys, b), nil
	case ViewNormalizedLocal:
		return trust.BucketizeNormalizedLocal(t, keys, b), nil
	case ViewRawGlobal:
		return trust.BucketizeGlobal(t, keys, b), nil
	case ViewNormalizedGlobal:
		return trust.BucketizeNormalizedGlobal(t, keys, b), nil
	default:
		return nil, fmt.Errorf("unknown bucket view %q", cfg.View)
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *BucketConfig) ValidateBasic() error {
	switch cfg.View {
	case ViewRawLocal, ViewNormalizedLocal, ViewRawGlobal, ViewNormalizedGlobal:
	default:
		return fmt.Errorf("unknown view %q", cfg.View)
	}
	_, err := cfg.Bucketizer()
	return err
}

//-----------------------------------------------------------------------------
// BehaviourConfig

// BehaviourConfig defines the local trust delta of each observed behaviour.
type BehaviourConfig struct {
	ConsensusVote     float64 `mapstructure:"consensus_vote"`
	BlockPart         float64 `mapstructure:"block_part"`
	BadMessage        float64 `mapstructure:"bad_message"`
	MessageOutOfOrder float64 `mapstructure:"message_out_of_order"`
}

// DefaultBehaviourConfig returns the default behaviour weights.
func DefaultBehaviourConfig() *BehaviourConfig {
	w := bh.DefaultWeights()
	return &BehaviourConfig{
		ConsensusVote:     w.ConsensusVote,
		BlockPart:         w.BlockPart,
		BadMessage:        w.BadMessage,
		MessageOutOfOrder: w.MessageOutOfOrder,
	}
}

// TestBehaviourConfig returns behaviour weights for testing.
func TestBehaviourConfig() *BehaviourConfig {
	return DefaultBehaviourConfig()
}

// Weights returns the configured weights.
func (cfg *BehaviourConfig) Weights() bh.Weights {
	return bh.Weights{
		ConsensusVote:     cfg.ConsensusVote,
		BlockPart:         cfg.BlockPart,
		BadMessage:        cfg.BadMessage,
		MessageOutOfOrder: cfg.MessageOutOfOrder,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *BehaviourConfig) ValidateBasic() error {
	return cfg.Weights().ValidateBasic()
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Maximum number of simultaneous connections.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "decentrust",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

//-----------------------------------------------------------------------------
// Moniker

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
