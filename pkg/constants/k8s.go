package constants

// K8s label keys
const (
	LabelApp       = "app"        // Deployment/app name
	LabelManagedBy = "managed-by" // Manager identifier
	LabelRelease   = "release"    // Release ID that produced the deployment

	ManagedByLoanpilot = "loanpilot"
)
