package k8s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"loanpilot/pkg/config"
	"loanpilot/pkg/constants"
)

func testManifestSpec() ManifestSpec {
	cfg := config.Default()
	spec := DefaultManifestSpec(cfg)
	spec.Namespace = "loanpilot"
	spec.Image = "registry.example.com/loan-prediction-app:1.0.0"
	return spec
}

func TestBuildManifestDefaults(t *testing.T) {
	spec := testManifestSpec()
	deployment, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, "loan-prediction-app", deployment.Name)
	assert.Equal(t, "loanpilot", deployment.Namespace)

	require.NotNil(t, deployment.Spec.Replicas)
	assert.Equal(t, int32(2), *deployment.Spec.Replicas)

	// Selector and template agree on the app label
	selectorApp := deployment.Spec.Selector.MatchLabels[constants.LabelApp]
	assert.Equal(t, "loan-prediction-app", selectorApp)
	assert.Equal(t, selectorApp, deployment.Spec.Template.Labels[constants.LabelApp])

	require.Len(t, deployment.Spec.Template.Spec.Containers, 1)
	container := deployment.Spec.Template.Spec.Containers[0]
	assert.Equal(t, corev1.PullAlways, container.ImagePullPolicy)

	requests := container.Resources.Requests
	limits := container.Resources.Limits
	assert.True(t, requests[corev1.ResourceCPU].Equal(resource.MustParse("250m")))
	assert.True(t, requests[corev1.ResourceMemory].Equal(resource.MustParse("256Mi")))
	assert.True(t, limits[corev1.ResourceCPU].Equal(resource.MustParse("500m")))
	assert.True(t, limits[corev1.ResourceMemory].Equal(resource.MustParse("512Mi")))

	require.Len(t, container.Ports, 1)
	assert.Equal(t, int32(8080), container.Ports[0].ContainerPort)
	require.NotNil(t, container.ReadinessProbe)
	assert.Equal(t, "/healthz", container.ReadinessProbe.HTTPGet.Path)

	assert.NoError(t, ValidateDeployment(deployment))
}

func TestBuildManifestReleaseLabel(t *testing.T) {
	spec := testManifestSpec()
	spec.ReleaseID = "rel-42"

	deployment, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, "rel-42", deployment.Labels[constants.LabelRelease])
	assert.Equal(t, "rel-42", deployment.Spec.Template.Labels[constants.LabelRelease])
	// The selector stays pinned to the app label so rollouts keep adopting
	// pods from previous releases
	_, hasRelease := deployment.Spec.Selector.MatchLabels[constants.LabelRelease]
	assert.False(t, hasRelease)
}

func TestBuildManifestRejectsBadInput(t *testing.T) {
	spec := testManifestSpec()
	spec.Name = ""
	_, err := spec.Build()
	assert.Error(t, err)

	spec = testManifestSpec()
	spec.Image = ""
	_, err = spec.Build()
	assert.Error(t, err)

	spec = testManifestSpec()
	spec.CPURequest = "two-fifty-m"
	_, err = spec.Build()
	assert.Error(t, err)

	spec = testManifestSpec()
	spec.MemoryLimit = "512Zi"
	_, err = spec.Build()
	assert.Error(t, err)
}

func TestManifestYAMLRoundTrip(t *testing.T) {
	spec := testManifestSpec()
	deployment, err := spec.Build()
	require.NoError(t, err)

	doc, err := RenderYAML(deployment)
	require.NoError(t, err)
	assert.Contains(t, doc, "kind: Deployment")
	assert.Contains(t, doc, "loan-prediction-app")

	parsed, err := ParseYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, deployment.Name, parsed.Name)
	require.NotNil(t, parsed.Spec.Replicas)
	assert.Equal(t, int32(2), *parsed.Spec.Replicas)
	assert.Equal(t, deployment.Spec.Selector.MatchLabels, parsed.Spec.Selector.MatchLabels)

	container := parsed.Spec.Template.Spec.Containers[0]
	assert.True(t, container.Resources.Requests[corev1.ResourceCPU].Equal(resource.MustParse("250m")))
	assert.True(t, container.Resources.Limits[corev1.ResourceMemory].Equal(resource.MustParse("512Mi")))

	assert.NoError(t, ValidateDeployment(parsed))
}

func TestParseYAMLRejectsOtherKinds(t *testing.T) {
	doc := `apiVersion: v1
kind: Service
metadata:
  name: loan-prediction-app
`
	_, err := ParseYAML(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported resource kind")
}
