package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
)

const maxWriteSize = 50 * 1024 * 1024

// WriteFileTool writes a file whole, creating parent directories as needed.
type WriteFileTool struct {
	allowedRoots []string
}

type writeFileRequest struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

func (t *WriteFileTool) Name() string { return NameWriteFile }

func (t *WriteFileTool) Description() string {
	return "Write content to a file, replacing it entirely. Creates parent directories if they don't exist."
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The full content to write",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Risk() permission.Risk { return permission.RiskWrite }

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req writeFileRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Path == "" {
		return ErrorResult("path argument is required")
	}
	if len(req.Content) > maxWriteSize {
		return ErrorResultf("content too large: %d bytes (max %d)", len(req.Content), maxWriteSize)
	}

	if v := security.CheckPath(req.Path, t.allowedRoots); !v.Allowed {
		return ErrorResult(denyMessage(v))
	}

	var priorSize int64 = -1
	if info, err := os.Stat(req.Path); err == nil {
		if info.IsDir() {
			return ErrorResultf("%s is a directory", req.Path)
		}
		priorSize = info.Size()
	}

	if err := os.MkdirAll(filepath.Dir(req.Path), 0755); err != nil {
		return ErrorResultf("failed to create parent directories: %v", err)
	}
	if err := os.WriteFile(req.Path, []byte(req.Content), 0644); err != nil {
		return ErrorResultf("failed to write file: %v", err)
	}

	if priorSize >= 0 {
		delta := int64(len(req.Content)) - priorSize
		return NewResult(fmt.Sprintf("wrote %s (%d bytes, %+d bytes vs previous)",
			req.Path, len(req.Content), delta))
	}
	return NewResult(fmt.Sprintf("created %s (%d bytes)", req.Path, len(req.Content)))
}
