// Package k8s builds, validates, and applies the Kubernetes Deployment
// that runs the loan scoring app. Manifests are constructed as typed
// objects so the selector, labels, and resource bounds are checked
// before anything reaches the cluster.
package k8s

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"loanpilot/pkg/config"
	"loanpilot/pkg/constants"
)

// ManifestSpec carries everything needed to build the scoring app
// Deployment manifest.
type ManifestSpec struct {
	Name          string            `json:"name"`
	Namespace     string            `json:"namespace"`
	Image         string            `json:"image"`
	Replicas      int32             `json:"replicas"`
	Port          int32             `json:"port"`
	CPURequest    string            `json:"cpuRequest"`
	CPULimit      string            `json:"cpuLimit"`
	MemoryRequest string            `json:"memoryRequest"`
	MemoryLimit   string            `json:"memoryLimit"`
	PullPolicy    string            `json:"pullPolicy"`
	ReleaseID     string            `json:"releaseId,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// DefaultManifestSpec builds a manifest spec from the configured
// deployment defaults.
func DefaultManifestSpec(cfg *config.Config) ManifestSpec {
	return ManifestSpec{
		Name:          cfg.Deployment.Name,
		Namespace:     cfg.K8s.Namespace,
		Image:         cfg.Deployment.Image,
		Replicas:      cfg.Deployment.Replicas,
		Port:          cfg.Deployment.Port,
		CPURequest:    cfg.Deployment.CPURequest,
		CPULimit:      cfg.Deployment.CPULimit,
		MemoryRequest: cfg.Deployment.MemoryRequest,
		MemoryLimit:   cfg.Deployment.MemoryLimit,
		PullPolicy:    cfg.Deployment.PullPolicy,
	}
}

// Build constructs the typed Deployment. The selector and template both
// carry the app label so the Deployment controller adopts exactly the
// pods it creates.
func (s *ManifestSpec) Build() (*appsv1.Deployment, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("manifest needs a name")
	}
	if s.Image == "" {
		return nil, fmt.Errorf("manifest needs an image")
	}

	requests, err := resourceList(s.CPURequest, s.MemoryRequest)
	if err != nil {
		return nil, fmt.Errorf("invalid resource requests: %w", err)
	}
	limits, err := resourceList(s.CPULimit, s.MemoryLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid resource limits: %w", err)
	}

	labels := map[string]string{
		constants.LabelApp:       s.Name,
		constants.LabelManagedBy: constants.ManagedByLoanpilot,
	}
	if s.ReleaseID != "" {
		labels[constants.LabelRelease] = s.ReleaseID
	}

	var env []corev1.EnvVar
	for name, value := range s.Env {
		env = append(env, corev1.EnvVar{Name: name, Value: value})
	}

	replicas := s.Replicas
	container := corev1.Container{
		Name:            s.Name,
		Image:           s.Image,
		ImagePullPolicy: corev1.PullPolicy(s.PullPolicy),
		Env:             env,
		Resources: corev1.ResourceRequirements{
			Requests: requests,
			Limits:   limits,
		},
	}
	if s.Port > 0 {
		container.Ports = []corev1.ContainerPort{
			{Name: "http", ContainerPort: s.Port, Protocol: corev1.ProtocolTCP},
		}
		container.ReadinessProbe = &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: "/healthz",
					Port: intstr.FromInt32(s.Port),
				},
			},
			InitialDelaySeconds: 5,
			PeriodSeconds:       10,
		}
	}

	deployment := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apps/v1",
			Kind:       "Deployment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      s.Name,
			Namespace: s.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{constants.LabelApp: s.Name},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}

	return deployment, nil
}

func resourceList(cpu, memory string) (corev1.ResourceList, error) {
	list := corev1.ResourceList{}
	if cpu != "" {
		q, err := resource.ParseQuantity(cpu)
		if err != nil {
			return nil, fmt.Errorf("cpu quantity %q: %w", cpu, err)
		}
		list[corev1.ResourceCPU] = q
	}
	if memory != "" {
		q, err := resource.ParseQuantity(memory)
		if err != nil {
			return nil, fmt.Errorf("memory quantity %q: %w", memory, err)
		}
		list[corev1.ResourceMemory] = q
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

// RenderYAML serializes a Deployment manifest to YAML.
func RenderYAML(deployment *appsv1.Deployment) (string, error) {
	data, err := yaml.Marshal(deployment)
	if err != nil {
		return "", fmt.Errorf("failed to render manifest: %w", err)
	}
	return string(data), nil
}

// ParseYAML decodes a single-document Deployment manifest.
func ParseYAML(doc string) (*appsv1.Deployment, error) {
	var meta metav1.TypeMeta
	if err := yaml.Unmarshal([]byte(doc), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if meta.Kind != "Deployment" {
		return nil, fmt.Errorf("unsupported resource kind: %s", meta.Kind)
	}

	var deployment appsv1.Deployment
	if err := yaml.Unmarshal([]byte(doc), &deployment); err != nil {
		return nil, fmt.Errorf("failed to parse Deployment: %w", err)
	}
	return &deployment, nil
}
