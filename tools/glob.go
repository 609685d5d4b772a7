package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/clai-dev/clai/permission"
)

// excludedDirs are skipped by both file matching and content search.
// Build output, dependency trees, and VCS internals are never useful to the
// model and blow through result caps.
var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
}

// GlobFilesTool finds files matching a doublestar glob pattern.
type GlobFilesTool struct {
	maxResults int
}

type globFilesRequest struct {
	Pattern string `mapstructure:"pattern"`
	Path    string `mapstructure:"path"`
}

func (t *GlobFilesTool) Name() string { return NameGlobFiles }

func (t *GlobFilesTool) Description() string {
	return "Find files matching a glob pattern (supports ** for recursive matching). " +
		"Results are sorted and capped; build and dependency directories are excluded."
}

func (t *GlobFilesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern, e.g. **/*.go or src/**/test_*.py",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search from (default: current directory)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GlobFilesTool) Risk() permission.Risk { return permission.RiskRead }

func (t *GlobFilesTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req globFilesRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Pattern == "" {
		return ErrorResult("pattern argument is required")
	}
	root := req.Path
	if root == "" {
		root = "."
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		ok, err := doublestar.Match(req.Pattern, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", req.Pattern, err)
		}
		if ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return ErrorResultf("glob failed: %v", err)
	}

	sort.Strings(matches)
	truncated := false
	if len(matches) > t.maxResults {
		matches = matches[:t.maxResults]
		truncated = true
	}

	if len(matches) == 0 {
		return NewResult(fmt.Sprintf("no files matching %q under %s", req.Pattern, root))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d files matching %q:\n", len(matches), req.Pattern)
	for _, m := range matches {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	if truncated {
		fmt.Fprintf(&b, "[truncated at %d results]\n", t.maxResults)
	}
	return NewResult(strings.TrimRight(b.String(), "\n"))
}

// statIsDir reports whether path exists and is a directory.
func statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
