// Package services resolves the collaborator services a job declares, such
// as "postgres:13" or "redis:6", into readiness probes and environment
// variables for the job's commands.
//
// The services themselves are expected to be provided by the machine berth
// runs on. This package only verifies they are reachable before any job
// commands run, and tells the job where to find them.
package services

import (
	"fmt"
	"strings"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
)

// Service is a resolved collaborator service: the manifest reference it came
// from, a probe to check its readiness, and the environment variables that
// tell the job's commands where to reach it.
type Service struct {
	Ref    pipeyml.ServiceRef
	Prober Prober
	Env    map[string]string
}

// Config holds the addresses and credentials used to resolve service
// references from the manifest.
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`

	// Addrs maps additional service kinds to "host:port" addresses, for
	// services berth has no dedicated probe for. These are probed with a
	// plain TCP dial.
	Addrs map[string]string `yaml:"addrs"`
}

// DefaultConfig has all services on localhost with their conventional ports.
var DefaultConfig = Config{
	Postgres: PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "postgres",
	},
	Redis: RedisConfig{
		Host: "localhost",
		Port: 6379,
	},
}

// Resolve maps a manifest service reference onto a probe and job
// environment, using the configured addresses.
//
// Unknown kinds must have an address in cfg.Addrs, and get a generic TCP
// probe.
func Resolve(ref pipeyml.ServiceRef, cfg Config) (Service, error) {
	kind := ref.Kind()
	switch kind {
	case "postgres", "postgresql":
		return Service{
			Ref:    ref,
			Prober: NewPostgresProber(cfg.Postgres),
			Env:    cfg.Postgres.env(),
		}, nil
	case "redis":
		return Service{
			Ref:    ref,
			Prober: NewRedisProber(cfg.Redis),
			Env:    cfg.Redis.env(),
		}, nil
	}
	addr, ok := cfg.Addrs[kind]
	if !ok {
		return Service{}, fmt.Errorf("no address configured for service %q", ref.Name)
	}
	return Service{
		Ref:    ref,
		Prober: NewTCPProber(addr),
		Env:    tcpEnv(kind, addr),
	}, nil
}

// ResolveAll resolves all given service references. References resolving to
// the same kind are collapsed into one.
func ResolveAll(refs []pipeyml.ServiceRef, cfg Config) ([]Service, error) {
	seen := make(map[string]struct{}, len(refs))
	services := make([]Service, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.Kind()]; ok {
			continue
		}
		seen[ref.Kind()] = struct{}{}
		service, err := Resolve(ref, cfg)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, nil
}

// MergeEnv flattens the environment variables of all services into a single
// map.
func MergeEnv(services []Service) map[string]string {
	merged := make(map[string]string)
	for _, service := range services {
		for k, v := range service.Env {
			merged[k] = v
		}
	}
	return merged
}

func tcpEnv(kind, addr string) map[string]string {
	prefix := envPrefix(kind)
	host, port := splitAddr(addr)
	return map[string]string{
		prefix + "_HOST": host,
		prefix + "_PORT": port,
	}
}

func envPrefix(kind string) string {
	upper := strings.ToUpper(kind)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, upper)
}

func splitAddr(addr string) (host, port string) {
	idx := strings.LastIndexByte(addr, ':')
	if idx == -1 {
		return addr, ""
	}
	return addr[:idx], addr[idx+1:]
}
