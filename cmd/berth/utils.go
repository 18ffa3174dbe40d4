package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/internal/gitutil"
	"github.com/berth-ci/berth-cmd/internal/lastbuild"
	"github.com/berth-ci/berth-cmd/internal/pathutil"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/typ.v4/slices"
)

func parseCurrentDir(dirArg string) (string, error) {
	if dirArg == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(dirArg)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !stat.IsDir() {
		dir, file := filepath.Split(abs)
		if file == ".berth-ci.yml" {
			return filepath.Clean(dir), nil
		}
		return "", fmt.Errorf("path is neither a dir nor a .berth-ci.yml file: %s", abs)
	}
	_, err = os.Stat(filepath.Join(abs, ".berth-ci.yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("missing .berth-ci.yml file in dir: %s", abs)
		}
		return "", err
	}
	return abs, nil
}

func parseVarSources(currentDir string, additionalSource varsub.Source) (varsub.Source, error) {
	var varSources varsub.SourceSlice

	if additionalSource != nil {
		varSources = append(varSources, additionalSource)
	}

	varSources = append(varSources, varsub.NewOSEnvSource("BERTH_VAR_"))

	varFileSource, errs := pipeyml.ParseVarFiles(currentDir)
	if len(errs) > 0 {
		logParseErrors(errs, currentDir)
		return nil, errors.New("failed to parse variable files")
	}
	varSources = append(varSources, varFileSource)

	gitStats, err := gitutil.StatsFromExec(currentDir)
	if err != nil {
		log.Warn().WithError(err).
			Message("Failed to get REPO_ and GIT_ variables from Git. Skipping those.")
	} else {
		log.Debug().Message("Read REPO_ and GIT_ variables from Git:\n" +
			gitStats.String())
		varSources = append(varSources, gitStats)
	}

	return varSources, nil
}

func parsePipeline(currentDir string, ymlArgs pipeyml.Args) (pipeyml.Pipeline, error) {
	varSource, err := parseVarSources(currentDir, ymlArgs.VarSource)
	if err != nil {
		return pipeyml.Pipeline{}, err
	}
	ymlArgs.VarSource = varSource

	ymlPath := filepath.Join(currentDir, ".berth-ci.yml")
	log.Debug().WithString("path", ymlPath).Message("Parsing .berth-ci.yml file.")
	pipeline, errs := pipeyml.ParseFile(ymlPath, ymlArgs)
	if len(errs) > 0 {
		logParseErrors(errs, currentDir)
		return pipeyml.Pipeline{}, errors.New("failed to parse .berth-ci.yml")
	}
	log.Debug().Message("Successfully parsed .berth-ci.yml")
	return pipeline, nil
}

func logParseErrors(errs errutil.Slice, currentDir string) {
	log.Warn().WithInt("errors", len(errs)).Message("Cannot run due to parsing errors.")
	log.Warn().Message("")
	for _, err := range errs {
		scopePrefix := errutil.AsScope(err)
		if scopePrefix != "" {
			scopePrefix += ": "
		}
		var posErr errutil.Pos
		if errors.As(err, &posErr) {
			log.Warn().Messagef("%4d:%-4d %s%s",
				posErr.Line, posErr.Column, scopePrefix, err.Error())
		} else {
			log.Warn().Messagef("   -:-    %s%s", scopePrefix, err.Error())
		}
	}
	log.Warn().Message("")

	varFiles := pipeyml.ListPossibleVarsFiles(currentDir)
	var sb strings.Builder
	sb.WriteString(`Tip: You can add variables to berth in multiple ways.

Berth looks for values in the following files:`)
	for _, file := range varFiles {
		if file.IsRel {
			continue
		}
		sb.WriteString("\n  ")
		sb.WriteString(file.PrettyPath(currentDir))
	}
	sb.WriteString(`

Berth also looks for:
  - All ".berth-vars.yml" in this directory or any parent directory.
  - Local Git repository and extracts GIT_ and REPO_ variables from it.
  - Environment variables, with prefix BERTH_VAR_ removed from them.

Sample file content:
  # .berth-vars.yml
  vars:
    REG_URL: http://harbor.example.com
`)
	log.Debug().Message(sb.String())
}

func addPipelineStageFlag(cmd *cobra.Command, flags *pflag.FlagSet, value *string) {
	flags.StringVarP(value, "stage", "s", "", "Stage to run (will run all stages if unset)")
	cmd.RegisterFlagCompletionFunc("stage", completePipelineStage)
}

func completePipelineStage(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	pipeline, err := parsePipelineForCompletions(args)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var stages []string
	for _, stage := range pipeline.Stages {
		stages = append(stages, stage.Name)
	}
	return stages, cobra.ShellCompDirectiveNoFileComp
}

func parsePipelineForCompletions(args []string) (pipeyml.Pipeline, error) {
	currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
	if err != nil {
		return pipeyml.Pipeline{}, err
	}

	ymlPath := filepath.Join(currentDir, ".berth-ci.yml")

	// Intentionally ignore any parse errors, as syntax errors are irrelevant
	// for the completions.
	pipeline, _ := pipeyml.ParseFile(ymlPath, pipeyml.Args{})
	return pipeline, nil
}

type commonVarSubFlags struct {
	buildID uint
}

func (flags commonVarSubFlags) varSource() varsub.Source {
	m := make(varsub.SourceMap)
	if flags.buildID != 0 {
		sourceName := "flag --build-id"
		if path, err := lastbuild.Path(); err == nil {
			sourceName = fmt.Sprintf(
				"%s, or next ID from %s", sourceName, pathutil.ShorthandHome(path))
		}
		m["BUILD_REF"] = varsub.Val{
			Value:  flags.buildID,
			Source: sourceName,
		}
	}
	return m
}

func addCommonVarSubFlags(flags *pflag.FlagSet, varFlags *commonVarSubFlags) {
	buildIDHelp := "Overrides BUILD_REF variable"
	if path, err := lastbuild.Path(); err == nil {
		if nextGuess, err := lastbuild.GuessNext(); err == nil {
			buildIDHelp = fmt.Sprintf("%s (default %d, via %q)", buildIDHelp, nextGuess, path)
		}
	}
	flags.UintVar(&varFlags.buildID, "build-id", 0, buildIDHelp)
}
