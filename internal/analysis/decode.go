package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const fence = "```"

// Decode turns a 2xx analysis response body into a Result. Two shapes are
// accepted: a JSON object carrying the result fields directly, or generated
// text (a bare body, a JSON string, or a candidates/text/output envelope)
// holding the JSON object, optionally inside a code fence.
func Decode(body []byte) (*Result, error) {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return nil, malformed(ReasonEmptyBody, raw, nil)
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Not JSON at all: treat the body as generated text.
		return DecodeText(raw)
	}

	switch typed := payload.(type) {
	case map[string]any:
		if _, ok := typed["decision"]; ok {
			return decodeFields(typed, raw)
		}
		if text, ok := envelopeText(typed); ok {
			return DecodeText(text)
		}
		return nil, malformed(ReasonMissingDecision, raw, nil)
	case string:
		return DecodeText(typed)
	default:
		return nil, malformed(ReasonInvalidJSON, raw, fmt.Errorf("expected a JSON object, got %T", payload))
	}
}

// DecodeText parses generated text. Only fence stripping is applied before
// parsing; no further repair is attempted.
func DecodeText(raw string) (*Result, error) {
	cleaned := StripFence(raw)
	if cleaned == "" {
		return nil, malformed(ReasonEmptyBody, raw, nil)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, malformed(ReasonInvalidJSON, raw, err)
	}

	if data == nil {
		return nil, malformed(ReasonInvalidJSON, raw, errors.New("expected a JSON object, got null"))
	}

	return decodeFields(data, raw)
}

// StripFence trims the text and, when it starts with a code fence, removes the
// leading fence with its optional language tag and a trailing fence.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, fence) {
		return text
	}

	text = strings.TrimPrefix(text, fence)
	text = strings.TrimLeftFunc(text, isLanguageTagRune)
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, fence)

	return strings.TrimSpace(text)
}

func isLanguageTagRune(r rune) bool {
	return r == '-' || r == '_' || r == '+' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// envelopeText finds generated text in the known response envelopes.
func envelopeText(data map[string]any) (string, bool) {
	if candidates, ok := data["candidates"].([]any); ok {
		for _, candidate := range candidates {
			text := candidateText(candidate)
			if text != "" {
				return text, true
			}
		}
		return "", true
	}

	for _, key := range []string{"text", "output"} {
		if text, ok := data[key].(string); ok {
			return text, true
		}
	}

	return "", false
}

func candidateText(candidate any) string {
	c, ok := candidate.(map[string]any)
	if !ok {
		return ""
	}

	content, ok := c["content"].(map[string]any)
	if !ok {
		return ""
	}

	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}

	var builder strings.Builder
	for _, part := range parts {
		p, ok := part.(map[string]any)
		if !ok {
			continue
		}
		text, _ := p["text"].(string)
		builder.WriteString(text)
	}

	return strings.TrimSpace(builder.String())
}

type textFields struct {
	Reason             string `mapstructure:"reason"`
	CoverLetter        string `mapstructure:"coverLetter"`
	ResumeEnhancements string `mapstructure:"resumeEnhancements"`
}

func decodeFields(data map[string]any, raw string) (*Result, error) {
	decisionValue, ok := data["decision"]
	if !ok || decisionValue == nil {
		return nil, malformed(ReasonMissingDecision, raw, nil)
	}

	decision, err := coerceDecision(decisionValue)
	if err != nil {
		return nil, malformed(ReasonInvalidDecision, raw, err)
	}

	scoreValue, ok := data["score"]
	if !ok || scoreValue == nil {
		return nil, malformed(ReasonMissingScore, raw, nil)
	}

	score, err := coerceScore(scoreValue)
	if err != nil {
		return nil, malformed(ReasonInvalidScore, raw, err)
	}

	var fields textFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       listToTextHook,
		WeaklyTypedInput: true,
		Result:           &fields,
	})
	if err != nil {
		return nil, fmt.Errorf("create field decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, malformed(ReasonInvalidField, raw, err)
	}

	return &Result{
		Decision:           decision,
		Score:              score,
		Reason:             fields.Reason,
		CoverLetter:        fields.CoverLetter,
		ResumeEnhancements: fields.ResumeEnhancements,
	}, nil
}

func coerceDecision(v any) (Decision, error) {
	switch val := v.(type) {
	case string:
		decision, ok := ParseDecision(val)
		if !ok {
			return "", fmt.Errorf("unknown decision %q", val)
		}
		return decision, nil
	case bool:
		if val {
			return DecisionYes, nil
		}
		return DecisionNo, nil
	default:
		return "", fmt.Errorf("unexpected decision type %T", v)
	}
}

// coerceScore rounds the reported score to an integer. The range is not
// checked here; see Result.Violations.
func coerceScore(v any) (int, error) {
	var f float64

	switch val := v.(type) {
	case float64:
		f = val
	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "%"))
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("parse score %q: %w", val, err)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unexpected score type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("score is not a finite number")
	}

	return int(math.Round(f)), nil
}

// listToTextHook joins list values into newline separated text; services
// sometimes return enhancement suggestions as an array.
func listToTextHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}

	items, ok := data.([]any)
	if !ok {
		return data, nil
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case string:
			if s := strings.TrimSpace(typed); s != "" {
				lines = append(lines, s)
			}
		case float64, bool:
			lines = append(lines, fmt.Sprintf("%v", typed))
		default:
			return nil, fmt.Errorf("unexpected list item type %T", item)
		}
	}

	return strings.Join(lines, "\n"), nil
}
