package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decentrust/decentrust/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}
		values, err := json.MarshalIndent(struct {
			Decentrust       string `json:"decentrust"`
			ScenarioProtocol uint64 `json:"scenario_protocol"`
			ConfigProtocol   uint64 `json:"config_protocol"`
		}{
			Decentrust:       version.Version,
			ScenarioProtocol: version.ScenarioProtocol.Uint64(),
			ConfigProtocol:   version.ConfigProtocol.Uint64(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol versions")
}
