package k8s

import (
	"fmt"
	"regexp"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"loanpilot/pkg/constants"
)

var (
	// Kubernetes DNS-1123 label: lowercase alphanumerics and '-', must
	// start and end with an alphanumeric, max 63 characters
	dns1123LabelRegex = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
)

// validateK8sName validates a Kubernetes resource name
func validateK8sName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("name too long (max 63 characters): %s", name)
	}
	if !dns1123LabelRegex.MatchString(name) {
		return fmt.Errorf("invalid name '%s': must consist of lowercase alphanumeric characters or '-', and must start and end with an alphanumeric character", name)
	}

	return nil
}

// ValidateDeployment checks a Deployment manifest against the rules the
// scoring app relies on: a positive replica count, a selector that
// matches the pod template, resource requests within limits, and a
// recognized image pull policy. Manifests that fail here would either be
// rejected by the API server or silently orphan their pods.
func ValidateDeployment(deployment *appsv1.Deployment) error {
	if deployment == nil {
		return fmt.Errorf("deployment is nil")
	}

	if err := validateK8sName(deployment.Name); err != nil {
		return fmt.Errorf("invalid deployment name: %w", err)
	}

	if deployment.Spec.Replicas == nil || *deployment.Spec.Replicas <= 0 {
		return fmt.Errorf("deployment %s: replicas must be a positive integer", deployment.Name)
	}

	if err := validateSelector(deployment); err != nil {
		return err
	}

	containers := deployment.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return fmt.Errorf("deployment %s: pod template has no containers", deployment.Name)
	}
	for i := range containers {
		if err := validateContainer(deployment.Name, &containers[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateSelector enforces the selector/template label contract: the
// selector's app label must exist and equal the template's app label,
// otherwise the Deployment controller cannot adopt the pods it creates.
func validateSelector(deployment *appsv1.Deployment) error {
	selector := deployment.Spec.Selector
	if selector == nil || len(selector.MatchLabels) == 0 {
		return fmt.Errorf("deployment %s: selector.matchLabels is required", deployment.Name)
	}

	appSelector, ok := selector.MatchLabels[constants.LabelApp]
	if !ok || appSelector == "" {
		return fmt.Errorf("deployment %s: selector is missing the %q label", deployment.Name, constants.LabelApp)
	}

	templateLabels := deployment.Spec.Template.Labels
	appLabel := templateLabels[constants.LabelApp]
	if appLabel != appSelector {
		return fmt.Errorf("deployment %s: selector %s=%q does not match template label %s=%q",
			deployment.Name, constants.LabelApp, appSelector, constants.LabelApp, appLabel)
	}

	// Every selector term must be satisfied by the template, not just app
	for key, want := range selector.MatchLabels {
		if got := templateLabels[key]; got != want {
			return fmt.Errorf("deployment %s: selector %s=%q does not match template label %s=%q",
				deployment.Name, key, want, key, got)
		}
	}

	return nil
}

func validateContainer(deploymentName string, container *corev1.Container) error {
	if container.Image == "" {
		return fmt.Errorf("deployment %s: container %s has no image", deploymentName, container.Name)
	}

	switch container.ImagePullPolicy {
	case corev1.PullAlways, corev1.PullIfNotPresent, corev1.PullNever:
	default:
		return fmt.Errorf("deployment %s: container %s has invalid imagePullPolicy %q (must be Always, IfNotPresent, or Never)",
			deploymentName, container.Name, container.ImagePullPolicy)
	}

	for _, port := range container.Ports {
		if port.ContainerPort <= 0 || port.ContainerPort > 65535 {
			return fmt.Errorf("deployment %s: container %s has invalid port %d",
				deploymentName, container.Name, port.ContainerPort)
		}
	}

	return validateResources(deploymentName, container)
}

// validateResources checks that every resource request fits within the
// corresponding limit.
func validateResources(deploymentName string, container *corev1.Container) error {
	limits := container.Resources.Limits
	for name, request := range container.Resources.Requests {
		if request.Sign() < 0 {
			return fmt.Errorf("deployment %s: container %s has negative %s request",
				deploymentName, container.Name, name)
		}
		limit, ok := limits[name]
		if !ok {
			continue
		}
		if request.Cmp(limit) > 0 {
			return fmt.Errorf("deployment %s: container %s %s request %s exceeds limit %s",
				deploymentName, container.Name, name, request.String(), limit.String())
		}
	}
	for name, limit := range limits {
		if limit.Sign() < 0 {
			return fmt.Errorf("deployment %s: container %s has negative %s limit",
				deploymentName, container.Name, name)
		}
	}
	return nil
}
