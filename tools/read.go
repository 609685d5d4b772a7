package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
)

const (
	maxReadFileSize = 10 * 1024 * 1024
	maxReadLines    = 2000
	maxLineChars    = 2000
)

// ReadFileTool reads file contents with size, line-count, and line-length
// ceilings. Binary files (containing a null byte) are rejected.
type ReadFileTool struct {
	allowedRoots []string
}

type readFileRequest struct {
	Path   string `mapstructure:"path"`
	Offset int    `mapstructure:"offset"`
	Limit  int    `mapstructure:"limit"`
}

func (t *ReadFileTool) Name() string { return NameReadFile }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Large files are capped at 2000 lines; " +
		"use offset (1-based line) and limit to read further ranges."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read",
			},
			"offset": map[string]interface{}{
				"type":        "integer",
				"description": "1-based line number to start reading from (optional)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of lines to return (optional)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Risk() permission.Risk { return permission.RiskRead }

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req readFileRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Path == "" {
		return ErrorResult("path argument is required")
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
	if info.IsDir() {
		return ErrorResultf("%s is a directory, not a file", req.Path)
	}
	if info.Size() > maxReadFileSize {
		return ErrorResultf("file too large: %d bytes (max %d). Use execute_command with head/tail to read portions.",
			info.Size(), maxReadFileSize)
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return ErrorResultf("failed to read file: %v", err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return ErrorResultf("%s appears to be a binary file", req.Path)
	}

	content := string(data)
	if content == "" {
		return NewResult(fmt.Sprintf("(empty file: %s)", req.Path))
	}

	lines := strings.Split(content, "\n")
	totalLines := len(lines)
	if lines[totalLines-1] == "" {
		totalLines--
	}
	// Drop the empty element a trailing newline produces so ranges are
	// computed over real lines only.
	lines = lines[:totalLines]

	start := 0
	if req.Offset > 0 {
		start = req.Offset - 1
	}
	if start >= totalLines {
		return ErrorResultf("offset %d exceeds file line count (%d)", req.Offset, totalLines)
	}

	limit := req.Limit
	if limit <= 0 || limit > maxReadLines {
		limit = maxReadLines
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}

	selected := lines[start:end]
	truncatedLines := 0
	for i, line := range selected {
		if len(line) > maxLineChars {
			selected[i] = line[:maxLineChars] + "... [line truncated]"
			truncatedLines++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s (%d bytes, %d lines, showing lines %d-%d)\n\n",
		req.Path, info.Size(), totalLines, start+1, start+len(selected))
	b.WriteString(strings.Join(selected, "\n"))
	if end < totalLines {
		fmt.Fprintf(&b, "\n\n[%d more lines; call again with offset=%d]", totalLines-end, end+1)
	}
	if truncatedLines > 0 {
		fmt.Fprintf(&b, "\n[%d lines were longer than %d characters and were truncated]",
			truncatedLines, maxLineChars)
	}
	return NewResult(b.String())
}
