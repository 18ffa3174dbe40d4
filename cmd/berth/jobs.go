package main

import (
	"fmt"
	"strings"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var jobsFlags = struct {
	stage string
}{}

var jobsCmd = &cobra.Command{
	Use:   "jobs [path]",
	Short: "Print the stages and jobs from a .berth-ci.yml file in run order",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
		if err != nil {
			return err
		}
		pipeline, err := parsePipeline(currentDir, pipeyml.Args{})
		if err != nil {
			return err
		}

		var sb strings.Builder
		for _, stage := range pipeline.Stages {
			if jobsFlags.stage != "" && stage.Name != jobsFlags.stage {
				continue
			}
			fmt.Fprintf(&sb, "\nstage %s:\n", stage.Name)
			for _, job := range stage.Jobs {
				fmt.Fprintf(&sb, "  %s", job.Name)
				if len(job.Services) > 0 {
					var names []string
					for _, service := range job.Services {
						names = append(names, service.Name)
					}
					fmt.Fprintf(&sb, " (services: %s)", strings.Join(names, ", "))
				}
				sb.WriteByte('\n')
			}
		}
		log.Info().Message(sb.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	addPipelineStageFlag(jobsCmd, jobsCmd.Flags(), &jobsFlags.stage)
}
