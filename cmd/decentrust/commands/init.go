package commands

import (
	"github.com/spf13/cobra"

	"github.com/decentrust/decentrust/config"
	"github.com/decentrust/decentrust/libs/log"
	tmos "github.com/decentrust/decentrust/libs/os"
)

// MakeInitFilesCommand returns the command to initialize a fresh decentrust
// home directory.
func MakeInitFilesCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the decentrust home directory",
		Long: `Write config.toml with the current settings to the config directory.
An existing config file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := conf.ConfigFile()
			if tmos.FileExists(cfgFile) && !force {
				logger.Info("found config file", "path", cfgFile)
				return nil
			}
			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("generated config file", "path", cfgFile, "mode", conf.Trust.Mode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
