package config

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/creachadair/atomicfile"

	tmos "github.com/decentrust/decentrust/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"float":  formatFloat,
		"floats": formatFloats,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// formatFloat renders f as a TOML float, never as an integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func formatFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

/****** these are for production settings ***********/

// EnsureRoot creates the root and config directories if they don't exist,
// and writes the default config file if none is present.
func EnsureRoot(rootDir string) error {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return err
	}
	return writeDefaultConfigFileIfNone(rootDir)
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
// This function is called by cmd/decentrust/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all. The file is replaced atomically.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	_, err := atomicfile.WriteAll(path, &buffer, 0644)
	return err
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if !tmos.FileExists(configFilePath) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# The home directory is "$HOME/.decentrust" by default, but could be changed
# via $DTHOME env variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this tracker
moniker = "{{ .BaseConfig.Moniker }}"

# Output level for logging: debug | info | warn | error
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text), 'text' or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###          Trust Tracker Configuration Options    ###
#######################################################
[trust]

# Backend: exact | sketch
# * exact
#   - one map entry per peer
#   - exact values, memory grows with the number of peers
# * sketch
#   - Count-Min Sketch, fixed memory
#   - estimates never fall below the true value but colliding peers
#     inflate each other
mode = "{{ .Trust.Mode }}"

# Sketch dimensions. When both are 0 the sketch is sized from
# error_bound, probability and max_entries below.
width = {{ .Trust.Width }}
depth = {{ .Trust.Depth }}

# An estimate exceeds the true value by at most error_bound out of
# max_entries total trust, with probability at least 1 - probability.
error_bound = {{ float .Trust.ErrorBound }}
probability = {{ float .Trust.Probability }}
max_entries = {{ float .Trust.MaxEntries }}

# Raw trust is kept within [min, max]. max = 0 means no upper bound.
min = {{ float .Trust.Min }}
max = {{ float .Trust.Max }}

# Sketch row hashing: offset | seeded
# * offset: one hash shifted by the row index
# * seeded: an independently seeded hash per row
hash = "{{ .Trust.Hash }}"

# How often a summary of the tracker is logged. 0 disables it.
report_interval = "{{ .Trust.ReportInterval }}"

#######################################################
###            Bucket Configuration Options         ###
#######################################################
[bucket]

# Bucketizer: fixed_width | linear | threshold
kind = "{{ .Bucket.Kind }}"

# Values bucketized: raw_local | normalized_local | raw_global | normalized_global
view = "{{ .Bucket.View }}"

# fixed_width: tier = floor((value - min) / width)
width = {{ float .Bucket.Width }}

# fixed_width and linear lower bound, linear upper bound
min = {{ float .Bucket.Min }}
max = {{ float .Bucket.Max }}

# linear: number of tiers
buckets = {{ .Bucket.Buckets }}

# threshold: ascending cut points
thresholds = {{ floats .Bucket.Thresholds }}

#######################################################
###          Behaviour Configuration Options        ###
#######################################################
[behaviour]

# Local trust gained per good behaviour
consensus_vote = {{ float .Behaviour.ConsensusVote }}
block_part = {{ float .Behaviour.BlockPart }}

# Local trust lost per misbehaviour
bad_message = {{ float .Behaviour.BadMessage }}
message_out_of_order = {{ float .Behaviour.MessageOutOfOrder }}

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# 0 - unlimited.
max_open_connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh root under dir with the test config
// written to it.
func ResetTestRoot(dir string) (*Config, error) {
	config := TestConfig().SetRoot(dir)
	if err := tmos.EnsureDir(filepath.Join(dir, defaultConfigDir), defaultDirPerm); err != nil {
		return nil, err
	}
	if err := WriteConfigFile(dir, config); err != nil {
		return nil, err
	}
	return config, nil
}
