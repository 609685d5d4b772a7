// Package security classifies paths, shell commands, and URLs before the
// agent acts on them. The checks are pattern-matching and advisory: they stop
// common accidental or careless destructive actions, not a determined
// adversary. This is not a sandbox.
package security

// Severity grades how bad a flagged input is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Verdict is the outcome of a check. Allowed verdicts may still carry a
// severity and suggestion (warn-but-allow). All checks are pure: the same
// input always yields the same verdict.
type Verdict struct {
	Allowed    bool
	Severity   Severity
	Reason     string
	Suggestion string
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func allowWarn(severity Severity, reason, suggestion string) Verdict {
	return Verdict{Allowed: true, Severity: severity, Reason: reason, Suggestion: suggestion}
}

func deny(severity Severity, reason, suggestion string) Verdict {
	return Verdict{Allowed: false, Severity: severity, Reason: reason, Suggestion: suggestion}
}
