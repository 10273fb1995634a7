package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Open-Social-World/autolibra"
	"github.com/Open-Social-World/autolibra/dataset"
	"github.com/Open-Social-World/autolibra/internal/config"
	"github.com/Open-Social-World/autolibra/trajectory"
)

// rootOptions holds global flags shared by all subcommands.
type rootOptions struct {
	dataPath        string
	annotationsPath string
	metricsPath     string
	datasetName     string
}

func newRootCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "autolibra",
		Short:         "Inspect an AutoLibra trajectory and annotation store",
		Version:       autolibra.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dataPath, "data", cfg.DataPath, "dataset base directory")
	cmd.PersistentFlags().StringVar(&opts.annotationsPath, "annotations", cfg.AnnotationsPath, "annotation project base directory")
	cmd.PersistentFlags().StringVar(&opts.metricsPath, "metrics-path", cfg.MetricsPath, "metric set base directory")
	cmd.PersistentFlags().StringVar(&opts.datasetName, "name", "", "dataset name used only when creating a new store")

	cmd.AddCommand(newInfoCommand(opts, logger))
	cmd.AddCommand(newInstancesCommand(opts, logger))
	cmd.AddCommand(newShowCommand(opts, logger))
	cmd.AddCommand(newTrajectoryCommand(opts, logger))
	cmd.AddCommand(newAnnotationsCommand(opts, logger))
	cmd.AddCommand(newMetricsCommand(opts, logger))

	return cmd
}

func (o *rootOptions) openDataset(logger *slog.Logger) (*dataset.Dataset, error) {
	return autolibra.OpenDataset(o.dataPath, o.datasetName, autolibra.WithLogger(logger))
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInfoCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print dataset metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.openDataset(logger)
			if err != nil {
				return err
			}
			defer d.Close()
			return emitJSON(d.Metadata())
		},
	}
}

func newInstancesCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	var agentType string
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List instance ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.openDataset(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			var ids []string
			if agentType != "" {
				ids, err = d.InstancesByAgentType(cmd.Context(), agentType)
			} else {
				ids, err = d.ListInstances(cmd.Context())
			}
			if err != nil {
				return err
			}
			return emitJSON(ids)
		},
	}
	cmd.Flags().StringVar(&agentType, "agent-type", "", "only instances containing this agent type")
	return cmd
}

func newShowCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Print one instance's metadata and agent roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.openDataset(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			instance, err := d.Instance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emitJSON(instance)
		},
	}
}

func newTrajectoryCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	var refsOnly bool
	cmd := &cobra.Command{
		Use:   "trajectory <instance-id> <agent-id>",
		Short: "Print one agent's trajectory with payloads resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.openDataset(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			log, err := d.Trajectory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if refsOnly {
				return emitJSON(log.Points())
			}
			rendered, err := trajectory.Render(cmd.Context(), log)
			if err != nil {
				return fmt.Errorf("render trajectory: %w", err)
			}
			return emitJSON(rendered)
		},
	}
	cmd.Flags().BoolVar(&refsOnly, "refs", false, "print media references instead of resolving payloads")
	return cmd
}

func newAnnotationsCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "annotations <instance-id> <agent-id>",
		Short: "Print the annotation list for one (instance, agent) key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := autolibra.OpenAnnotations(opts.annotationsPath, "", autolibra.WithLogger(logger))
			if err != nil {
				return err
			}
			list, err := sys.Annotations(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return emitJSON(list)
		},
	}
}

func newMetricsCommand(opts *rootOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the metric set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := autolibra.OpenMetricSet(opts.metricsPath, "", autolibra.WithLogger(logger))
			if err != nil {
				return err
			}
			return emitJSON(set.Metrics())
		},
	}
}
