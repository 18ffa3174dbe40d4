package main

import (
	"fmt"

	"github.com/berth-ci/berth-cmd/internal/lastbuild"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var varsFlags = struct {
	varSubFlags commonVarSubFlags
}{}

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Commands for working with berth's variable substitution",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Intentionally not calling parent PersistentPreRunE
		// to skip the config loading from rootCmd

		if varsFlags.varSubFlags.buildID == 0 {
			buildID, err := lastbuild.GuessNext()
			if err != nil {
				return fmt.Errorf("get default for --build-id flag: %w", err)
			}
			varsFlags.varSubFlags.buildID = buildID
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(varsCmd)

	addCommonVarSubFlags(varsCmd.PersistentFlags(), &varsFlags.varSubFlags)
}

func varsCmdParsePipeline(args []string) (pipeyml.Pipeline, error) {
	currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
	if err != nil {
		return pipeyml.Pipeline{}, err
	}

	return parsePipeline(currentDir, pipeyml.Args{
		VarSource: varsFlags.varSubFlags.varSource(),
	})
}
