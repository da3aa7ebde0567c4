package k8s

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_ResourceBoundsValidation verifies that validation accepts
// a manifest exactly when every resource request fits within its limit.
func TestProperty_ResourceBoundsValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("manifest is valid iff cpu request <= cpu limit", prop.ForAll(
		func(requestMilli, limitMilli int) bool {
			spec := testManifestSpecProp()
			spec.CPURequest = fmt.Sprintf("%dm", requestMilli)
			spec.CPULimit = fmt.Sprintf("%dm", limitMilli)

			deployment, err := spec.Build()
			if err != nil {
				return false
			}
			err = ValidateDeployment(deployment)
			if requestMilli <= limitMilli {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(1, 4000),
		gen.IntRange(1, 4000),
	))

	properties.Property("manifest is valid iff memory request <= memory limit", prop.ForAll(
		func(requestMi, limitMi int) bool {
			spec := testManifestSpecProp()
			spec.MemoryRequest = fmt.Sprintf("%dMi", requestMi)
			spec.MemoryLimit = fmt.Sprintf("%dMi", limitMi)

			deployment, err := spec.Build()
			if err != nil {
				return false
			}
			err = ValidateDeployment(deployment)
			if requestMi <= limitMi {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(1, 8192),
		gen.IntRange(1, 8192),
	))

	properties.TestingRun(t)
}

// TestProperty_ReplicaValidation verifies that only positive replica
// counts pass validation.
func TestProperty_ReplicaValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("validation passes iff replicas > 0", prop.ForAll(
		func(replicas int32) bool {
			spec := testManifestSpecProp()
			spec.Replicas = replicas

			deployment, err := spec.Build()
			if err != nil {
				return false
			}
			err = ValidateDeployment(deployment)
			if replicas > 0 {
				return err == nil
			}
			return err != nil
		},
		gen.Int32Range(-50, 50),
	))

	properties.TestingRun(t)
}

// TestProperty_SelectorAlwaysMatchesTemplate verifies that every built
// manifest keeps the selector and template app labels in agreement,
// whatever the name.
func TestProperty_SelectorAlwaysMatchesTemplate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("built manifests keep selector and template labels equal", prop.ForAll(
		func(name string) bool {
			spec := testManifestSpecProp()
			spec.Name = name

			deployment, err := spec.Build()
			if err != nil {
				return false
			}
			selectorApp := deployment.Spec.Selector.MatchLabels["app"]
			templateApp := deployment.Spec.Template.Labels["app"]
			return selectorApp == name && templateApp == name
		},
		genDNS1123Name(),
	))

	properties.TestingRun(t)
}

func testManifestSpecProp() ManifestSpec {
	return ManifestSpec{
		Name:          "loan-prediction-app",
		Namespace:     "loanpilot",
		Image:         "registry.example.com/loan-prediction-app:1.0.0",
		Replicas:      2,
		Port:          8080,
		CPURequest:    "250m",
		CPULimit:      "500m",
		MemoryRequest: "256Mi",
		MemoryLimit:   "512Mi",
		PullPolicy:    "Always",
	}
}

// genDNS1123Name generates valid lowercase DNS label names
func genDNS1123Name() gopter.Gen {
	alnum := gen.OneConstOf(
		"a", "b", "c", "x", "y", "z", "0", "5", "9",
	)
	return gen.SliceOfN(8, alnum).Map(func(parts []string) string {
		name := ""
		for _, p := range parts {
			name += p
		}
		return name
	})
}
