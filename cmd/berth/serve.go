package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/berth-ci/berth-cmd/internal/lastbuild"
	"github.com/berth-ci/berth-cmd/pkg/artifactstore"
	"github.com/berth-ci/berth-cmd/pkg/resultsapi"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var serveFlags = struct {
	buildID uint
	prune   bool
}{}

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serves the results of a previous build over REST",
	Long: `Serves the stored job logs, statuses, and artifacts of a previously
run build over the results REST API. Blocks until terminated
(e.g via SIGTERM).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
		if err != nil {
			return err
		}
		buildID := serveFlags.buildID
		if buildID == 0 {
			next, err := lastBuildGuess()
			if err != nil {
				return err
			}
			buildID = next
		}

		buildDir := fmt.Sprint(buildID)
		store := resultstore.NewStore(resultstore.NewFS(
			filepath.Join(currentDir, rootConfig.Store.ResultsDir, buildDir)))
		artifacts, err := artifactstore.New(
			filepath.Join(currentDir, rootConfig.Store.ArtifactsDir, buildDir))
		if err != nil {
			return fmt.Errorf("open artifact store: %w", err)
		}

		if serveFlags.prune {
			pruned, err := artifacts.Prune(time.Now())
			if err != nil {
				return fmt.Errorf("prune expired artifacts: %w", err)
			}
			log.Info().WithInt("count", len(pruned)).Message("Pruned expired artifacts.")
		}

		server := resultsapi.NewServer(rootConfig.API, store, artifacts)
		log.Info().
			WithString("address", rootConfig.API.HTTP.BindAddress).
			WithUint("build", buildID).
			Message("Serving build results via REST.")
		return server.Serve()
	},
}

// lastBuildGuess approximates the ID of the most recent build from the
// machine-local build ID sequence.
func lastBuildGuess() (uint, error) {
	next, err := lastbuild.GuessNext()
	if err != nil {
		return 0, fmt.Errorf("get last build ID: %w", err)
	}
	if next <= 1 {
		return 0, errors.New("no previous build found, use --build-id to pick one")
	}
	return next - 1, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().UintVar(&serveFlags.buildID, "build-id", 0, "Build to serve results for (defaults to the last build)")
	serveCmd.Flags().BoolVar(&serveFlags.prune, "prune", true, "Prune expired artifacts before serving")
}
