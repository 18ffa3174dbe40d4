package main

import (
	"fmt"
	"os"

	"github.com/berth-ci/berth-cmd/internal/strutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"github.com/spf13/cobra"
)

var varsSubFlags = struct {
	value string
}{}

var varsSubstituteCmd = &cobra.Command{
	Use:     "substitute [path]",
	Aliases: []string{"sub"},
	Short:   "Replace variables in a value or in lines piped in from STDIN",
	Long: `Performs variable substitution on the value given via --value, or on
each line that is piped in from STDIN. Can be chained to make a new
file with variables substituted, like so:

	cat orig.txt | berth vars substitute > new-file.txt`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := varsCmdParsePipeline(args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("value") {
			result, err := varsub.Substitute(varsSubFlags.value, pipeline.VarSource)
			if err != nil {
				return err
			}
			fmt.Println(strutil.Stringify(result))
			return nil
		}
		copier := varsub.NewCopier(pipeline.VarSource)
		return copier.Copy(os.Stdout, os.Stdin)
	},
}

func init() {
	varsCmd.AddCommand(varsSubstituteCmd)

	varsSubstituteCmd.Flags().StringVarP(&varsSubFlags.value, "value", "v", "", "Value to substitute variables in")
}
