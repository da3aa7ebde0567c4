// Property-based tests for configuration fallback. A config file with
// out-of-range values must never leave the process with an unusable
// configuration: every invalid field falls back to its default.
package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_InvalidServerPortFallsBackToDefault(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	def := Default()

	properties.Property("non-positive ports fall back to default", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			validateAndApplyDefaults(cfg)
			return cfg.Server.Port == def.Server.Port
		},
		gen.IntRange(-65535, 0),
	))

	properties.Property("ports above 65535 fall back to default", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			validateAndApplyDefaults(cfg)
			return cfg.Server.Port == def.Server.Port
		},
		gen.IntRange(65536, 1<<20),
	))

	properties.Property("valid ports are preserved", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			validateAndApplyDefaults(cfg)
			return cfg.Server.Port == port
		},
		gen.IntRange(1, 65535),
	))

	properties.TestingRun(t)
}

func TestProperty_InvalidModelConfigFallsBackToDefault(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	def := Default()

	properties.Property("non-positive tree counts fall back to default", prop.ForAll(
		func(trees int) bool {
			cfg := Default()
			cfg.Model.Trees = trees
			validateAndApplyDefaults(cfg)
			return cfg.Model.Trees == def.Model.Trees
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("test fraction outside (0,1) falls back to default", prop.ForAll(
		func(fraction float64) bool {
			cfg := Default()
			cfg.Model.TestFraction = fraction
			validateAndApplyDefaults(cfg)
			return cfg.Model.TestFraction == def.Model.TestFraction
		},
		gen.OneGenOf(gen.Float64Range(-10, 0), gen.Float64Range(1, 10)),
	))

	properties.TestingRun(t)
}

func TestProperty_InvalidReplicasFallsBackToDefault(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	def := Default()

	properties.Property("non-positive replica counts fall back to default", prop.ForAll(
		func(replicas int32) bool {
			cfg := Default()
			cfg.Deployment.Replicas = replicas
			validateAndApplyDefaults(cfg)
			return cfg.Deployment.Replicas == def.Deployment.Replicas
		},
		gen.Int32Range(-100, 0),
	))

	properties.TestingRun(t)
}
