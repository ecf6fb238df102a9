package audithook

// Action constants for audit events.
const (
	// Guild actions
	ActionGuildRegistered = "guild.registered"

	// Feature actions
	ActionFeatureEnabled   = "feature.enabled"
	ActionFeatureDisabled  = "feature.disabled"
	ActionPermissionDenied = "permission.denied"

	// Moderation actions
	ActionMaliciousLink = "link.malicious"

	// Welcome actions
	ActionWelcomeSent = "welcome.sent"

	// Handler actions
	ActionHandlerFailed = "handler.failed"
)

// Resource constants for audit events.
const (
	ResourceGuild   = "guild"
	ResourceFeature = "feature"
	ResourceMessage = "message"
	ResourceMember  = "member"
	ResourceEvent   = "event"
)

// Category constants for audit events.
const (
	CategoryConfig     = "config"
	CategoryAccess     = "access"
	CategoryModeration = "moderation"
	CategoryGreeting   = "greeting"
	CategoryRuntime    = "runtime"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
)
