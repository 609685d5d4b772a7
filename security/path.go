package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// blockedPathPrefixes are sensitive system locations that are never readable
// or writable through the agent's tools, no matter how the path was spelled.
// Matching is on the canonical (absolute, traversal-resolved) form.
var blockedPathPrefixes = []string{
	"/etc/shadow",
	"/etc/gshadow",
	"/etc/sudoers",
	"/etc/passwd",
	"/etc/ssh",
	"/root/.ssh",
	"/proc",
	"/sys",
	"/boot",
	"/dev/sd",
	"/dev/nvme",
	"/dev/vd",
	"/dev/hd",
	"/dev/mmcblk",
	"/dev/mem",
	"/dev/disk",
}

// blockedPathSegments are directory names blocked anywhere in a path,
// covering per-user locations like /home/alice/.ssh.
var blockedPathSegments = []string{
	".ssh",
}

// sensitivePathPatterns flag credential-like files. Access is allowed but
// flagged so the model is warned before it echoes secrets into a transcript.
var sensitivePathPatterns = []string{
	".env",
	"id_rsa",
	"id_ed25519",
	".pem",
	".key",
	"credentials",
	".aws",
	".npmrc",
	".netrc",
}

// CheckPath canonicalizes a path and classifies it. allowedRoots, when
// non-empty, constrain any path written with a parent-directory traversal
// marker: the canonical result must fall under one of the roots. With no
// roots configured, traversal markers alone are not denied.
func CheckPath(path string, allowedRoots []string) Verdict {
	if path == "" {
		return deny(SeverityLow, "empty path", "")
	}

	hadTraversal := strings.Contains(path, "..")

	abs, err := filepath.Abs(path)
	if err != nil {
		return deny(SeverityLow, fmt.Sprintf("cannot resolve path: %v", err), "")
	}
	canonical := filepath.Clean(abs)

	for _, prefix := range blockedPathPrefixes {
		blocked := canonical == prefix || strings.HasPrefix(canonical, prefix+"/")
		if !blocked && isDevicePrefix(prefix) {
			// Device prefixes match without a separator: /dev/sd covers /dev/sda1.
			blocked = strings.HasPrefix(canonical, prefix)
		}
		if blocked {
			return deny(SeverityCritical,
				fmt.Sprintf("access to %s is blocked (sensitive system location)", canonical), "")
		}
	}
	for _, seg := range blockedPathSegments {
		if containsSegment(canonical, seg) {
			return deny(SeverityCritical,
				fmt.Sprintf("access to %s is blocked (SSH configuration)", canonical), "")
		}
	}

	if hadTraversal && len(allowedRoots) > 0 {
		inside := false
		for _, root := range allowedRoots {
			cleanRoot := filepath.Clean(root)
			if canonical == cleanRoot || strings.HasPrefix(canonical, cleanRoot+"/") {
				inside = true
				break
			}
		}
		if !inside {
			return deny(SeverityHigh,
				fmt.Sprintf("path %s escapes allowed directories", canonical),
				"use a path under the workspace roots")
		}
	}

	lower := strings.ToLower(canonical)
	for _, pat := range sensitivePathPatterns {
		if strings.Contains(lower, pat) {
			return allowWarn(SeverityMedium,
				fmt.Sprintf("%s looks like a credential or environment file", canonical),
				"avoid echoing secrets into the conversation")
		}
	}

	return allow()
}

// isDevicePrefix reports whether a blocked prefix names a device family
// (/dev/sd matches /dev/sda1 without a separator).
func isDevicePrefix(prefix string) bool {
	return strings.HasPrefix(prefix, "/dev/")
}

func containsSegment(path, seg string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == seg {
			return true
		}
	}
	return false
}
