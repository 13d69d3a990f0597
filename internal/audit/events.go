package audit

import "time"

// Security event types.
const (
	EventUnauthorizedAccess = "UNAUTHORIZED_ACCESS"
)

// Severity ranks security events for alerting.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Mutation actions recorded for access-control changes.
const (
	ActionRoleAssigned      = "ROLE_ASSIGNED"
	ActionRoleRevoked       = "ROLE_REVOKED"
	ActionPermissionGranted = "PERMISSION_GRANTED"
	ActionPermissionRevoked = "PERMISSION_REVOKED"
)

// SecurityEvent records a denial or resolution failure.
type SecurityEvent struct {
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	PrincipalID string    `json:"principal_id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	ResourceID  string    `json:"resource_id,omitempty"`
	Reason      string    `json:"reason"`
	IP          string    `json:"ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	At          time.Time `json:"at"`
}

// MutationRecord records an access-control change made through the
// management API.
type MutationRecord struct {
	Action   string         `json:"action"`
	ActorID  string         `json:"actor_id"`
	TargetID string         `json:"target_id"`
	Success  bool           `json:"success"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}
