package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/clai-dev/clai/permission"
)

const maxSearchLineLen = 500

// SearchContentTool greps file contents for a regular expression. Matches
// are grouped by file; files are reported in lexicographic order.
type SearchContentTool struct {
	maxResults int
}

type searchContentRequest struct {
	Pattern     string `mapstructure:"pattern"`
	Path        string `mapstructure:"path"`
	FilePattern string `mapstructure:"file_pattern"`
}

func (t *SearchContentTool) Name() string { return NameSearchContent }

func (t *SearchContentTool) Description() string {
	return "Search file contents for a regular expression. Returns matching files " +
		"with line numbers, capped and sorted; binary files and build directories are skipped."
}

func (t *SearchContentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regular expression to search for",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search in (default: current directory)",
			},
			"file_pattern": map[string]interface{}{
				"type":        "string",
				"description": "Restrict to files matching this name glob, e.g. *.go (optional)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *SearchContentTool) Risk() permission.Risk { return permission.RiskRead }

func (t *SearchContentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req searchContentRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Pattern == "" {
		return ErrorResult("pattern argument is required")
	}
	re, err := regexp.Compile(req.Pattern)
	if err != nil {
		return ErrorResultf("invalid regular expression: %v", err)
	}
	root := req.Path
	if root == "" {
		root = "."
	}
	if !statIsDir(root) {
		return ErrorResultf("%s is not a directory", root)
	}

	byFile := make(map[string][]string)
	truncated := false
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
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
		if req.FilePattern != "" {
			if ok, _ := filepath.Match(req.FilePattern, d.Name()); !ok {
				return nil
			}
		}
		if len(byFile) >= t.maxResults {
			truncated = true
			return fs.SkipAll
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		searchFile(path, rel, re, byFile)
		return nil
	})
	if walkErr != nil && ctx.Err() == nil {
		return ErrorResultf("search failed: %v", walkErr)
	}

	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return NewResult(fmt.Sprintf("no matches for %q under %s", req.Pattern, root))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found matches in %d files:\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(&b, "\n%s:\n", p)
		for _, line := range byFile[p] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if truncated {
		fmt.Fprintf(&b, "\n[truncated at %d files]", t.maxResults)
	}
	return NewResult(strings.TrimRight(b.String(), "\n"))
}

// searchFile scans one file line by line. Files containing a null byte in
// the first chunk are treated as binary and skipped silently.
func searchFile(path, rel string, re *regexp.Regexp, byFile map[string][]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.IndexByte(line, 0) >= 0 {
			return // binary
		}
		if !re.MatchString(line) {
			continue
		}
		if len(line) > maxSearchLineLen {
			line = line[:maxSearchLineLen] + "..."
		}
		if len(byFile[rel]) < 10 {
			byFile[rel] = append(byFile[rel], fmt.Sprintf("  %d: %s", lineNum, strings.TrimSpace(line)))
		}
	}
}
