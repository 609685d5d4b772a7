package security

import (
	"fmt"
	"regexp"
)

// commandRule pairs a destructive-command pattern with the verdict detail it
// produces. Rules are evaluated in order; the first match wins.
type commandRule struct {
	pattern    *regexp.Regexp
	severity   Severity
	reason     string
	suggestion string
}

// destructiveRules match classes of commands that destroy data or the
// system. Compiled once at package init; the table is append-only in spirit
// and never mutated at runtime.
var destructiveRules = []commandRule{
	{
		pattern:    regexp.MustCompile(`\brm\s+(-\S*\s+)*-\S*[rf]\S*\s+(/|~)(\s|$)`),
		severity:   SeverityCritical,
		reason:     "recursive deletion rooted at / or home",
		suggestion: "delete a specific subdirectory instead",
	},
	{
		pattern:    regexp.MustCompile(`\brm\s+(-\S*\s+)*-\S*[rf]\S*\s+\$HOME(\s|/\s*$|$)`),
		severity:   SeverityCritical,
		reason:     "recursive deletion rooted at / or home",
		suggestion: "delete a specific subdirectory instead",
	},
	{
		pattern:    regexp.MustCompile(`\brm\s+(-\S*\s+)*\S*\*`),
		severity:   SeverityHigh,
		reason:     "wildcard-rooted deletion",
		suggestion: "enumerate the files explicitly before deleting",
	},
	{
		pattern:    regexp.MustCompile(`>\s*/dev/(sd|nvme|vd|hd|mmcblk)`),
		severity:   SeverityCritical,
		reason:     "direct write to a block device",
		suggestion: "",
	},
	{
		pattern:    regexp.MustCompile(`\bmkfs(\.\w+)?\b`),
		severity:   SeverityCritical,
		reason:     "filesystem format utility",
		suggestion: "",
	},
	{
		pattern:    regexp.MustCompile(`\bdd\s+.*\bof=/dev/`),
		severity:   SeverityCritical,
		reason:     "disk-image write to a device target",
		suggestion: "",
	},
	{
		pattern:    regexp.MustCompile(`\bchmod\s+(-\S*\s+)*-R\s+777\s+`),
		severity:   SeverityHigh,
		reason:     "recursive world-writable permission change",
		suggestion: "grant the narrowest permissions that work",
	},
	{
		pattern:    regexp.MustCompile(`\b(curl|wget)\b.*\|\s*(sudo\s+)?(ba|z|fi|da)?sh\b`),
		severity:   SeverityHigh,
		reason:     "remote script piped directly into a shell",
		suggestion: "download the script, review it, then run it",
	},
	{
		pattern:    regexp.MustCompile(`:\(\)\s*\{\s*:\|:\s*&\s*\}\s*;?\s*:`),
		severity:   SeverityCritical,
		reason:     "fork bomb",
		suggestion: "",
	},
	{
		pattern:    regexp.MustCompile(`>\s*/(etc|boot|proc|sys)/`),
		severity:   SeverityHigh,
		reason:     "redirection write into a system configuration tree",
		suggestion: "edit system files through a proper tool with review",
	},
}

// escalationPattern matches direct root-shell invocations. These are allowed
// but flagged so the user sees the elevation request.
var escalationPattern = regexp.MustCompile(`(^|\s)(sudo\s+(su|-i|-s|bash|sh)|su\s+-|su\s+root)(\s|$)`)

// CheckCommand evaluates a shell command against the destructive-pattern
// rules in order; the first match denies. Commands that merely request
// elevated rights are allowed with a medium-severity warning.
func CheckCommand(command string) Verdict {
	if command == "" {
		return deny(SeverityLow, "empty command", "")
	}

	for _, rule := range destructiveRules {
		if rule.pattern.MatchString(command) {
			return deny(rule.severity,
				fmt.Sprintf("command blocked: %s", rule.reason), rule.suggestion)
		}
	}

	if escalationPattern.MatchString(command) {
		return allowWarn(SeverityMedium,
			"command will request elevated rights",
			"make sure root access is actually needed")
	}

	return allow()
}
