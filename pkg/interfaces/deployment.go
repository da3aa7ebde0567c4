package interfaces

import (
	"context"

	"loanpilot/internal/model"
)

// DeploymentProvider manages the scoring app deployment in a cluster.
// The k8s implementation is the only one today; the interface keeps the
// service layer testable without a live cluster.
type DeploymentProvider interface {
	// Apply builds and applies the deployment for a release (create or update)
	Apply(ctx context.Context, release *model.Release) error

	// Status retrieves the live deployment status
	Status(ctx context.Context, name string) (*model.DeploymentStatus, error)

	// Scale changes the desired replica count
	Scale(ctx context.Context, name string, replicas int32) error

	// Delete removes the deployment
	Delete(ctx context.Context, name string) error

	// ManifestYAML renders the deployment manifest for a release without applying it
	ManifestYAML(release *model.Release) (string, error)

	// WatchReplicas watches replica count changes until ctx is cancelled
	WatchReplicas(ctx context.Context, callback ReplicaCallback) error

	// Close releases underlying informers/resources
	Close()
}

// ReplicaEvent represents a Deployment replica change event
type ReplicaEvent struct {
	Name              string             `json:"name"`
	DesiredReplicas   int                `json:"desiredReplicas"`
	ReadyReplicas     int                `json:"readyReplicas"`
	AvailableReplicas int                `json:"availableReplicas"`
	UpdatedReplicas   int                `json:"updatedReplicas"`
	Conditions        []ReplicaCondition `json:"conditions,omitempty"`
}

type ReplicaCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReplicaCallback replica change callback
type ReplicaCallback func(event ReplicaEvent)
