package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/config"
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/dcsc"
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/logging"
)

var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:           "run_dcsc <edgelist_file>",
		Short:         "run_dcsc enumerates the strongly connected components of a directed graph",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
	config.Define(cmd.Flags())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	outputs := []string{"stderr"}
	if cfg.LogFile != "" {
		outputs = append(outputs, cfg.LogFile)
	}
	ctx, err := logging.Init(context.Background(),
		logging.WithLogLevel(cfg.LogLevel),
		logging.WithLogFormat(cfg.LogFormat),
		logging.WithOutputPaths(outputs),
	)
	if err != nil {
		return err
	}
	l := ctxzap.Extract(ctx)
	defer func() { _ = l.Sync() }()

	res, err := dcsc.Run(ctx, args[0], dcsc.Options{Ranks: cfg.Ranks})
	if err != nil {
		return err
	}

	l.Info("run complete",
		zap.Uint64("rounds", res.Rounds),
		zap.Uint64("scc_count", res.SCCCount),
		zap.Uint64("largest_scc", res.LargestSCC),
	)
	return nil
}
