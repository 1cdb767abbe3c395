package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = DTSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// DTSemVer is the current version of decentrust.
	// It's the Semantic Version of the software.
	DTSemVer = "0.1.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// ScenarioProtocol versions the scenario file format.
	ScenarioProtocol Protocol = 1

	// ConfigProtocol versions the config.toml layout.
	ConfigProtocol Protocol = 1
)
