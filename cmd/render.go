package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/driver"
	"github.com/spigell/wingman/internal/utils"
)

const (
	outputText = "text"
	outputJSON = "json"

	prefillPreviewLength = 300
)

func newRenderer(output string, w io.Writer) (driver.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", outputText:
		return &textRenderer{w: w}, nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return &jsonRenderer{enc: enc}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", output)
	}
}

type textRenderer struct {
	w io.Writer
}

func (r *textRenderer) RenderPrefill(title, description string) {
	fmt.Fprintf(r.w, "Job: %s\n%s\n\n", title, utils.TruncateForLog(description, prefillPreviewLength))
}

func (r *textRenderer) RenderResult(result *analysis.Result) {
	fmt.Fprintf(r.w, "Decision: %s\nScore: %d/100\n", result.Decision, result.Score)

	section(r.w, "Reason", result.Reason)
	section(r.w, "Resume enhancements", result.ResumeEnhancements)
	section(r.w, "Cover letter", result.CoverLetter)
}

func (r *textRenderer) RenderError(message string) {
	fmt.Fprintf(r.w, "Error: %s\n", message)
}

func section(w io.Writer, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(w, "\n%s:\n%s\n", title, body)
}

// jsonRenderer prints only the outcome, in the shape of the ANALYZE_RESUME reply.
type jsonRenderer struct {
	enc *json.Encoder
}

func (r *jsonRenderer) RenderPrefill(string, string) {}

func (r *jsonRenderer) RenderResult(result *analysis.Result) {
	_ = r.enc.Encode(map[string]any{"result": result})
}

func (r *jsonRenderer) RenderError(message string) {
	_ = r.enc.Encode(map[string]string{"error": message})
}
