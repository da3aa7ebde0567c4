package k8s

import (
	"context"
	"fmt"

	"loanpilot/internal/model"
	"loanpilot/pkg/config"
	"loanpilot/pkg/interfaces"
)

// Provider implements interfaces.DeploymentProvider on top of Manager,
// filling release fields from the configured deployment defaults.
type Provider struct {
	manager  *Manager
	defaults ManifestSpec
}

// NewProvider creates a K8s deployment provider
func NewProvider(cfg *config.Config) (interfaces.DeploymentProvider, error) {
	if !cfg.K8s.Enabled {
		return nil, fmt.Errorf("k8s is not enabled in config")
	}

	manager, err := NewManager(cfg.K8s.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create k8s manager: %w", err)
	}

	return &Provider{
		manager:  manager,
		defaults: DefaultManifestSpec(cfg),
	}, nil
}

// specForRelease merges a release over the configured defaults
func (p *Provider) specForRelease(release *model.Release) ManifestSpec {
	spec := p.defaults
	if release.Name != "" {
		spec.Name = release.Name
	}
	if release.Image != "" {
		spec.Image = release.Image
	}
	if release.Replicas > 0 {
		spec.Replicas = release.Replicas
	}
	spec.ReleaseID = release.ID
	return spec
}

// Apply builds and applies the deployment for a release
func (p *Provider) Apply(ctx context.Context, release *model.Release) error {
	spec := p.specForRelease(release)
	deployment, err := spec.Build()
	if err != nil {
		return err
	}
	return p.manager.Apply(ctx, deployment)
}

// Status retrieves the live deployment status
func (p *Provider) Status(ctx context.Context, name string) (*model.DeploymentStatus, error) {
	return p.manager.Status(ctx, name)
}

// Scale changes the desired replica count
func (p *Provider) Scale(ctx context.Context, name string, replicas int32) error {
	return p.manager.Scale(ctx, name, replicas)
}

// Delete removes the deployment
func (p *Provider) Delete(ctx context.Context, name string) error {
	return p.manager.Delete(ctx, name)
}

// ManifestYAML renders the deployment manifest for a release without applying it
func (p *Provider) ManifestYAML(release *model.Release) (string, error) {
	spec := p.specForRelease(release)
	deployment, err := spec.Build()
	if err != nil {
		return "", err
	}
	if err := ValidateDeployment(deployment); err != nil {
		return "", err
	}
	return RenderYAML(deployment)
}

// WatchReplicas registers a callback to observe replica changes.
func (p *Provider) WatchReplicas(ctx context.Context, callback interfaces.ReplicaCallback) error {
	if p.manager == nil {
		return fmt.Errorf("k8s manager not initialized")
	}
	if callback == nil {
		return fmt.Errorf("replica callback is nil")
	}

	id := p.manager.RegisterReplicaCallback(func(event interfaces.ReplicaEvent) {
		select {
		case <-ctx.Done():
			return
		default:
			callback(event)
		}
	})

	go func() {
		<-ctx.Done()
		p.manager.UnregisterReplicaCallback(id)
	}()

	return nil
}

// Close releases underlying informers/resources
func (p *Provider) Close() {
	if p.manager != nil {
		p.manager.Close()
	}
}
