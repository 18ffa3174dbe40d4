// Package config defines berth's configurable settings and how they are
// loaded from files and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/berth-ci/berth-cmd/pkg/services"
	"github.com/iver-wharf/wharf-core/v2/pkg/config"
)

// Config holds all configurable settings for berth.
//
// The config is read in the following order:
//
// 1. File: ~/.config/berth-ci/berth-cmd-config.yml
//
// 2. File: ./.berth-cmd-config.yml
//
// 3. File from environment variable: BERTH_CONFIG
//
// 4. Environment variables, prefixed with BERTH
//
// Each inner struct is represented as a deeper field in the different
// configurations. For YAML they represent deeper nested maps. For environment
// variables they are joined together by underscores.
//
// All environment variables must be uppercased, while YAML files are
// case-insensitive. Keeping camelCasing in YAML config files is recommended
// for consistency.
type Config struct {
	Runner RunnerConfig
	API    APIConfig
	Store  StoreConfig
}

// RunnerConfig holds settings for how jobs are run.
type RunnerConfig struct {
	// Services holds the addresses and credentials of the collaborator
	// services jobs may declare, such as PostgreSQL and Redis.
	Services services.Config

	// ServiceWait holds settings for the readiness polling performed before
	// a job with services is started.
	ServiceWait ServiceWaitConfig
}

// ServiceWaitConfig holds settings for service readiness polling.
type ServiceWaitConfig struct {
	// PollInterval is the delay between readiness probes of a service that
	// is not yet ready.
	PollInterval time.Duration

	// Timeout is the total time to wait for all of a job's services before
	// failing the job.
	Timeout time.Duration
}

// APIConfig holds settings for the results API.
type APIConfig struct {
	HTTP HTTPConfig
}

// HTTPConfig holds settings for the HTTP server.
type HTTPConfig struct {
	CORS CORSConfig

	// BindAddress is the IP-address and port, separated by a colon, to bind
	// the HTTP server to. An IP-address of 0.0.0.0 will bind to all
	// IP-addresses.
	BindAddress string
}

// CORSConfig holds settings for the HTTP server's CORS settings.
type CORSConfig struct {
	// AllowAllOrigins enables CORS and allows all hostnames and URLs in the
	// HTTP request origins when set to true. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin" set to "*".
	AllowAllOrigins bool

	// AllowOrigins enables CORS and allows the list of origins in the
	// HTTP request origins when set. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin".
	AllowOrigins []string
}

// StoreConfig holds settings for where build results and artifacts are kept
// on disk.
type StoreConfig struct {
	// ResultsDir is the directory job logs and status updates are written
	// to, relative to the directory holding the manifest.
	ResultsDir string

	// ArtifactsDir is the directory artifact tarballs are written to,
	// relative to the directory holding the manifest.
	ArtifactsDir string
}

// DefaultConfig is the hard-coded default values for berth's configs.
var DefaultConfig = Config{
	Runner: RunnerConfig{
		Services: services.DefaultConfig,
		ServiceWait: ServiceWaitConfig{
			PollInterval: time.Second,
			Timeout:      2 * time.Minute,
		},
	},
	API: APIConfig{
		HTTP: HTTPConfig{
			CORS: CORSConfig{
				AllowAllOrigins: false,
				AllowOrigins:    []string{},
			},
			BindAddress: "0.0.0.0:5009",
		},
	},
	Store: StoreConfig{
		ResultsDir:   ".berth/results",
		ArtifactsDir: ".berth/artifacts",
	},
}

// LoadConfig looks for, parses and validates the config and returns it as a
// Config object.
func LoadConfig() (Config, error) {
	cfgBuilder := config.NewBuilder(DefaultConfig)

	cfgBuilder.AddConfigYAMLFile("~/.config/berth-ci/berth-cmd-config.yml")
	cfgBuilder.AddConfigYAMLFile(".berth-cmd-config.yml")
	if cfgFile, ok := os.LookupEnv("BERTH_CONFIG"); ok {
		cfgBuilder.AddConfigYAMLFile(cfgFile)
	}
	cfgBuilder.AddEnvironmentVariables("BERTH")

	var cfg Config
	if err := cfgBuilder.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	wait := c.Runner.ServiceWait
	if wait.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: runner.serviceWait.pollInterval=%s", wait.PollInterval)
	}
	if wait.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: runner.serviceWait.timeout=%s", wait.Timeout)
	}
	if wait.PollInterval > wait.Timeout {
		return fmt.Errorf("poll interval exceeds timeout: runner.serviceWait.pollInterval=%s, runner.serviceWait.timeout=%s",
			wait.PollInterval, wait.Timeout)
	}
	if c.Store.ResultsDir == "" {
		return fmt.Errorf("missing directory: store.resultsDir")
	}
	if c.Store.ArtifactsDir == "" {
		return fmt.Errorf("missing directory: store.artifactsDir")
	}
	return nil
}
