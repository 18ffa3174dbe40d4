package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/berth-ci/berth-cmd/internal/gitutil"
	"github.com/berth-ci/berth-cmd/internal/ignorer"
	"github.com/berth-ci/berth-cmd/internal/lastbuild"
	"github.com/berth-ci/berth-cmd/pkg/artifactstore"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/resultsapi"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/berth-ci/berth-cmd/pkg/runner"
	"github.com/berth-ci/berth-cmd/pkg/services"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

const (
	cancelGracePeriod = 10 * time.Second
)

var runFlags = struct {
	stage       string
	serve       bool
	noGitIgnore bool
	varSubFlags commonVarSubFlags
}{}

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Runs a new build from a .berth-ci.yml file",
	Long: `Runs a new build on the local machine based on a .berth-ci.yml file.

Use the optional "path" argument to specify a .berth-ci.yml file or a
directory containing a .berth-ci.yml file. Defaults to current directory ("./")

If no stage is specified via --stage then berth will run all stages
in sequence, based on their order of declaration in the .berth-ci.yml file.

All jobs in each stage will be run in parallel for each stage.`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		currentDir, err := parseCurrentDir(slices.SafeGet(args, 0))
		if err != nil {
			return err
		}
		buildID := runFlags.varSubFlags.buildID
		if buildID == 0 {
			buildID, err = lastbuild.Next()
			if err != nil {
				return fmt.Errorf("get next build ID: %w", err)
			}
			runFlags.varSubFlags.buildID = buildID
		}
		log.Debug().WithUint("build", buildID).Message("Using build ID.")

		pipeline, err := parsePipeline(currentDir, pipeyml.Args{
			VarSource: runFlags.varSubFlags.varSource(),
		})
		if err != nil {
			return err
		}

		buildDir := fmt.Sprint(buildID)
		store := resultstore.NewStore(resultstore.NewFS(
			filepath.Join(currentDir, rootConfig.Store.ResultsDir, buildDir)))
		artifacts, err := artifactstore.New(
			filepath.Join(currentDir, rootConfig.Store.ArtifactsDir, buildDir))
		if err != nil {
			return fmt.Errorf("open artifact store: %w", err)
		}

		jobRunner, err := runner.NewJobRunner(runner.JobRunnerOptions{
			Store:     store,
			Artifacts: artifacts,
			Services:  rootConfig.Runner.Services,
			Waiter: services.Waiter{
				PollInterval: rootConfig.Runner.ServiceWait.PollInterval,
				Timeout:      rootConfig.Runner.ServiceWait.Timeout,
			},
			WorkDir:   currentDir,
			VarSource: pipeline.VarSource,
			Ignorer:   parseIgnorer(currentDir),
		})
		if err != nil {
			return err
		}
		b := runner.New(pipeline, jobRunner, runner.BuildOptions{
			StageFilter: runFlags.stage,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if runFlags.serve {
			var server resultsapi.Server
			ctx, server = startResultsServerWithCancel(ctx, store, artifacts)
			defer server.ForceStop()
		}

		go handleCancelSignals(func() {
			time.AfterFunc(cancelGracePeriod, func() {
				log.Warn().Message("Failed to cancel within grace period. Force quitting now.")
				os.Exit(3)
			})
			cancel()
		})

		log.Info().Message("Starting build.")
		res, err := b.Build(ctx)
		if err != nil {
			return err
		}
		store.Freeze()
		if res.Status != resultstore.StatusSuccess {
			return errors.New("build failed")
		}
		log.Info().
			WithDuration("dur", res.Duration.Truncate(time.Second)).
			WithStringer("status", res.Status).
			Message("Done with build.")

		if runFlags.serve {
			<-ctx.Done()
		}
		return nil
	},
}

func parseIgnorer(currentDir string) ignorer.Ignorer {
	if runFlags.noGitIgnore {
		return nil
	}
	ign, err := gitutil.NewIgnorer(currentDir)
	if err != nil {
		log.Warn().WithError(err).
			Message("Failed to read .gitignore files. Including all files in artifacts.")
		return nil
	}
	return ign
}

func startResultsServerWithCancel(ctx context.Context, store resultstore.Store, artifacts artifactstore.Store) (context.Context, resultsapi.Server) {
	ctx, cancel := context.WithCancel(ctx)
	server := resultsapi.NewServer(rootConfig.API, store, artifacts)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	go func() {
		log.Info().WithString("address", rootConfig.API.HTTP.BindAddress).
			Message("Serving build results via REST.")
		defer cancel()
		if err := server.Serve(); err != nil {
			log.Error().WithError(err).Message("Server error.")
		}
	}()

	return ctx, server
}

func handleCancelSignals(f func()) {
	waitForCancelSignal()
	log.Info().WithDuration("gracePeriod", cancelGracePeriod).
		Message("Cancelling build. Press ^C again to force quit.")
	go func() {
		waitForCancelSignal()
		log.Warn().Message("Received second interrupt. Force quitting now.")
		os.Exit(2)
	}()
	f()
}

func waitForCancelSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	<-ch
}

func init() {
	rootCmd.AddCommand(runCmd)

	addPipelineStageFlag(runCmd, runCmd.Flags(), &runFlags.stage)
	runCmd.Flags().BoolVar(&runFlags.serve, "serve", false, "Serves build results over REST and waits until terminated (e.g via SIGTERM)")
	runCmd.Flags().BoolVar(&runFlags.noGitIgnore, "no-gitignore", false, "Don't respect .gitignore files when collecting artifacts")
	addCommonVarSubFlags(runCmd.Flags(), &runFlags.varSubFlags)
}
