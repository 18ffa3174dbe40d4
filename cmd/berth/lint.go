package main

import (
	"errors"
	"path/filepath"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Validates a .berth-ci.yml file without running it",
	Long: `Parses and validates a .berth-ci.yml file, listing all parsing
errors with their line and column, without running any jobs.`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
		if err != nil {
			return err
		}
		varSource, err := parseVarSources(currentDir, nil)
		if err != nil {
			return err
		}
		ymlPath := filepath.Join(currentDir, ".berth-ci.yml")
		_, errs := pipeyml.ParseFile(ymlPath, pipeyml.Args{VarSource: varSource})
		if len(errs) > 0 {
			logParseErrors(errs, currentDir)
			return errors.New("failed to parse .berth-ci.yml")
		}
		log.Info().WithString("path", ymlPath).Message("Valid .berth-ci.yml file.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
