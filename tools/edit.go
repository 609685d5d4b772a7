package tools

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
)

// EditFileTool replaces an exact substring in an existing file. Without
// replace_all the substring must occur exactly once; this is what prevents
// the model from silently editing the wrong occurrence.
type EditFileTool struct {
	allowedRoots []string
}

type editFileRequest struct {
	Path       string `mapstructure:"path"`
	OldString  string `mapstructure:"old_string"`
	NewString  string `mapstructure:"new_string"`
	ReplaceAll bool   `mapstructure:"replace_all"`
}

func (t *EditFileTool) Name() string { return NameEditFile }

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing an exact string match. By default old_string " +
		"must appear exactly once; set replace_all=true to replace every occurrence."
}

func (t *EditFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"old_string": map[string]interface{}{
				"type":        "string",
				"description": "The exact string to find",
			},
			"new_string": map[string]interface{}{
				"type":        "string",
				"description": "The string to replace it with",
			},
			"replace_all": map[string]interface{}{
				"type":        "boolean",
				"description": "Replace all occurrences instead of requiring exactly one (default: false)",
			},
		},
		"required": []string{"path", "old_string", "new_string"},
	}
}

func (t *EditFileTool) Risk() permission.Risk { return permission.RiskWrite }

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req editFileRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Path == "" {
		return ErrorResult("path argument is required")
	}
	if req.OldString == "" {
		return ErrorResult("old_string argument is required")
	}

	if v := security.CheckPath(req.Path, t.allowedRoots); !v.Allowed {
		return ErrorResult(denyMessage(v))
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResultf("file not found: %s", req.Path)
		}
		return ErrorResultf("failed to stat file: %v", err)
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return ErrorResultf("failed to read file: %v", err)
	}
	content := string(data)

	count := strings.Count(content, req.OldString)
	if count == 0 {
		return ErrorResultf("old_string not found in %s", req.Path)
	}
	if !req.ReplaceAll && count > 1 {
		lineNums := occurrenceLines(content, req.OldString)
		return ErrorResultf("old_string found %d times (at lines %s); "+
			"provide more surrounding context to make it unique, or set replace_all=true",
			count, formatLineNums(lineNums))
	}

	var newContent string
	if req.ReplaceAll {
		newContent = strings.ReplaceAll(content, req.OldString, req.NewString)
	} else {
		newContent = strings.Replace(content, req.OldString, req.NewString, 1)
	}

	if err := os.WriteFile(req.Path, []byte(newContent), info.Mode()); err != nil {
		return ErrorResultf("failed to write file: %v", err)
	}

	firstIdx := strings.Index(content, req.OldString)
	firstLine := strings.Count(content[:firstIdx], "\n") + 1
	if req.ReplaceAll {
		return NewResult(fmt.Sprintf("edited %s: %d replacements (first at line %d)",
			req.Path, count, firstLine))
	}
	return NewResult(fmt.Sprintf("edited %s: replaced 1 occurrence at line %d", req.Path, firstLine))
}

// occurrenceLines returns the 1-based line numbers where substr appears.
func occurrenceLines(content, substr string) []int {
	var lines []int
	offset := 0
	for {
		idx := strings.Index(content[offset:], substr)
		if idx == -1 {
			break
		}
		lines = append(lines, strings.Count(content[:offset+idx], "\n")+1)
		offset += idx + len(substr)
	}
	return lines
}

func formatLineNums(nums []int) string {
	strs := make([]string, len(nums))
	for i, n := range nums {
		strs[i] = strconv.Itoa(n)
	}
	if len(strs) > 10 {
		return strings.Join(strs[:10], ", ") + ", ..."
	}
	return strings.Join(strs, ", ")
}
