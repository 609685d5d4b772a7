package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
)

// FetchURLTool retrieves a URL and returns its content as text. HTML is
// stripped to plain text; JSON is pretty-printed.
type FetchURLTool struct {
	timeout  time.Duration
	maxChars int
	client   *http.Client
}

type fetchURLRequest struct {
	URL string `mapstructure:"url"`
}

func NewFetchURLTool(timeout time.Duration, maxChars int) *FetchURLTool {
	return &FetchURLTool{
		timeout:  timeout,
		maxChars: maxChars,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects")
				}
				// Redirect targets get the same treatment as the original URL.
				if v := security.CheckURL(req.URL.String()); !v.Allowed {
					return fmt.Errorf("redirect blocked: %s", v.Reason)
				}
				return nil
			},
		},
	}
}

func (t *FetchURLTool) Name() string { return NameFetchURL }

func (t *FetchURLTool) Description() string {
	return "Fetch an http(s) URL and return its content. HTML is converted to plain text, " +
		"JSON is pretty-printed. Private and loopback addresses are refused."
}

func (t *FetchURLTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "HTTP or HTTPS URL to fetch",
			},
		},
		"required": []string{"url"},
	}
}

func (t *FetchURLTool) Risk() permission.Risk { return permission.RiskNetwork }

func (t *FetchURLTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req fetchURLRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.URL == "" {
		return ErrorResult("url argument is required")
	}

	if v := security.CheckURL(req.URL); !v.Allowed {
		return ErrorResult(denyMessage(v))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return ErrorResultf("failed to create request: %v", err)
	}
	httpReq.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return ErrorResultf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrorResultf("HTTP %d from %s", resp.StatusCode, req.URL)
	}

	// Read at most maxChars plus a byte so truncation is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxChars)+1))
	if err != nil {
		return ErrorResultf("failed to read response: %v", err)
	}
	truncated := len(body) > t.maxChars
	if truncated {
		body = body[:t.maxChars]
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	switch {
	case strings.Contains(contentType, "application/json"):
		text = prettyJSON(body)
	case strings.Contains(contentType, "text/html"):
		text = htmlToText(string(body))
	default:
		text = string(body)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nContent-Type: %s\n\n%s", req.URL, contentType, text)
	if truncated {
		fmt.Fprintf(&b, "\n\n[content truncated at %d characters]", t.maxChars)
	}
	return NewResult(b.String())
}

// prettyJSON re-indents a JSON body; invalid JSON is returned as-is.
func prettyJSON(body []byte) string {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	formatted, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(formatted)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reComment = regexp.MustCompile(`<!--[\s\S]*?-->`)
	rePara    = regexp.MustCompile(`(?i)<p[^>]*>([\s\S]*?)</p>`)
	reBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	reItem    = regexp.MustCompile(`(?i)<li[^>]*>([\s\S]*?)</li>`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reMultiNL = regexp.MustCompile(`\n{3,}`)
	reMultiSP = regexp.MustCompile(`[ \t]{2,}`)
)

// htmlToText extracts readable text from an HTML document.
func htmlToText(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reComment.ReplaceAllString(s, "")

	s = rePara.ReplaceAllString(s, "\n$1\n")
	s = reBreak.ReplaceAllString(s, "\n")
	s = reItem.ReplaceAllString(s, "\n- $1")
	s = reTag.ReplaceAllString(s, "")

	s = decodeEntities(s)
	s = reMultiSP.ReplaceAllString(s, " ")
	s = reMultiNL.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}

func decodeEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
	return replacer.Replace(s)
}
