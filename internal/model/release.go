package model

import "time"

// ReleaseStatus rollout status
type ReleaseStatus string

const (
	ReleaseStatusPending   ReleaseStatus = "PENDING"    // Manifest built, not yet applied
	ReleaseStatusRolling   ReleaseStatus = "ROLLING"    // Applied, waiting for readiness
	ReleaseStatusReady     ReleaseStatus = "READY"      // All replicas available
	ReleaseStatusDegraded  ReleaseStatus = "DEGRADED"   // Applied but not fully available
	ReleaseStatusDeleted   ReleaseStatus = "DELETED"    // Removed from the cluster
	ReleaseStatusApplyFail ReleaseStatus = "APPLY_FAIL" // Apply rejected by the cluster
)

// Release is one rollout of the scoring app deployment.
type Release struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Image     string        `json:"image"`
	Replicas  int32         `json:"replicas"`
	Status    ReleaseStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RolloutRequest create release request
type RolloutRequest struct {
	Image    string `json:"image,omitempty"`    // Defaults to the configured image
	Replicas *int32 `json:"replicas,omitempty"` // Defaults to the configured replica count
}

// RolloutResponse create release response
type RolloutResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Image    string        `json:"image"`
	Replicas int32         `json:"replicas"`
	Status   ReleaseStatus `json:"status"`
}

// ScaleRequest scale request
type ScaleRequest struct {
	Replicas int32 `json:"replicas" binding:"required"`
}

// DeploymentStatus live deployment state as reported by the cluster.
type DeploymentStatus struct {
	Name              string `json:"name"`
	Desired           int32  `json:"desired"`
	Ready             int32  `json:"ready"`
	Available         int32  `json:"available"`
	Updated           int32  `json:"updated"`
	ObservedGen       int64  `json:"observed_generation"`
	AvailableCondTrue bool   `json:"available_condition"`
}

// Healthy reports whether the deployment has converged: the Available
// condition holds and desired, ready, available and updated replica
// counts all agree.
func (s *DeploymentStatus) Healthy() bool {
	return s.AvailableCondTrue &&
		s.Desired == s.Ready &&
		s.Desired == s.Available &&
		s.Desired == s.Updated
}
