package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clai-dev/clai/config"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
	"github.com/mitchellh/mapstructure"
)

// Tool names form a closed set. Dispatch and the schema advertised to the
// model must stay in lockstep: adding a capability means updating both.
const (
	NameReadFile       = "read_file"
	NameWriteFile      = "write_file"
	NameEditFile       = "edit_file"
	NameExecuteCommand = "execute_command"
	NameGlobFiles      = "glob_files"
	NameSearchContent  = "search_content"
	NameFetchURL       = "fetch_url"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON-schema parameter object advertised to the model.
	Parameters() map[string]interface{}
	// Risk grades the tool's side effects for blanket approval policy.
	Risk() permission.Risk
	// Execute runs the tool. It never panics past this boundary and never
	// returns a nil result.
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Result is the uniform outcome of a tool execution. Output is never absent:
// a success with nothing to say carries a placeholder.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// NewResult builds a successful result, substituting a placeholder for
// empty output.
func NewResult(output string) *Result {
	if output == "" {
		output = "(no output)"
	}
	return &Result{Success: true, Output: output}
}

// ErrorResult builds a failed result.
func ErrorResult(msg string) *Result {
	return &Result{Success: false, Output: "", Error: msg}
}

// ErrorResultf builds a failed result from a format string.
func ErrorResultf(format string, args ...interface{}) *Result {
	return ErrorResult(fmt.Sprintf(format, args...))
}

// denyMessage renders a denying verdict's reason together with its
// remediation suggestion, when one is present.
func denyMessage(v security.Verdict) string {
	if v.Suggestion == "" {
		return v.Reason
	}
	return v.Reason + " (" + v.Suggestion + ")"
}

// decodeArgs maps the model-provided argument object onto a typed request.
// Weak typing absorbs JSON numbers arriving as float64.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// Registry holds the fixed capability set.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry registers the full capability set, configured from cfg.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	roots := cfg.Security.AllowedRoots
	r.register(&ReadFileTool{allowedRoots: roots})
	r.register(&WriteFileTool{allowedRoots: roots})
	r.register(&EditFileTool{allowedRoots: roots})
	r.register(NewExecuteCommandTool(cfg.CommandTimeout()))
	r.register(&GlobFilesTool{maxResults: cfg.Limits.MaxGlobResults})
	r.register(&SearchContentTool{maxResults: cfg.Limits.MaxSearchResults})
	r.register(NewFetchURLTool(cfg.FetchTimeout(), cfg.Limits.FetchMaxChars))
	return r
}

func (r *Registry) register(t Tool) {
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute dispatches by name. Unknown names and internal panics become
// failed results; nothing escapes the tool boundary.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", name, "panic", rec)
			result = ErrorResultf("internal fault in tool %s: %v", name, rec)
		}
	}()

	t, ok := r.Get(name)
	if !ok {
		return ErrorResultf("unknown tool %q", name)
	}
	slog.Debug("executing tool", "tool", name)
	return t.Execute(ctx, args)
}
