package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/decentrust/decentrust/cmd/decentrust/commands"
	"github.com/decentrust/decentrust/config"
	"github.com/decentrust/decentrust/libs/cli"
	"github.com/decentrust/decentrust/libs/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf := config.DefaultConfig()
	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitFilesCommand(conf, logger),
		commands.MakeReplayCommand(conf, logger),
		commands.MakeInspectCommand(conf, logger),
		commands.MakeElectCommand(conf, logger),
		commands.VersionCmd,
	)
	rcmd.AddCommand(commands.NewCompletionCmd(rcmd, true))

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		cancel()
		os.Exit(2)
	}
}
