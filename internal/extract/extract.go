package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dyike/CortexFolio/internal/result"
)

// PlanMarker precedes the JSON plan in trading-agent responses.
const PlanMarker = "FINAL TRADING PLAN OUTPUT:"

// StatusMarker follows the plan in persisted responses.
const StatusMarker = "Database Status:"

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")
	markerRe = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(PlanMarker) + `\s*(\{.*?\})\s*` + regexp.QuoteMeta(StatusMarker))

	bulletRe = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

	errNoObject = errors.New("no json object found")
)

// Locate picks the substring most likely to hold the JSON payload:
// a fenced block, then the marker span, then the whole trimmed text.
func Locate(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if span, ok := markerSpan(text); ok {
		return span
	}
	return strings.TrimSpace(text)
}

func markerSpan(text string) (string, bool) {
	idx := strings.Index(text, PlanMarker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(PlanMarker):]
	start := strings.Index(rest, "{")
	end := strings.LastIndex(rest, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return rest[start : end+1], true
}

// Default is the value returned when extraction fails.
func Default(expectedKey string) map[string]any {
	if expectedKey == "" {
		return map[string]any{}
	}
	return map[string]any{expectedKey: map[string]any{}}
}

// Object extracts a JSON object from free text. On failure the result
// still carries Default(expectedKey) as its value, with a parse error.
func Object(text, expectedKey string) result.Result[map[string]any] {
	payload := Locate(text)
	var out map[string]any
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return result.Result[map[string]any]{
			Value: Default(expectedKey),
			Err:   result.Wrap(result.KindParse, "extract.object", err),
		}
	}
	if out == nil {
		return result.Result[map[string]any]{
			Value: Default(expectedKey),
			Err:   result.Wrap(result.KindParse, "extract.object", errNoObject),
		}
	}
	return result.Ok(out)
}

// Into decodes the located JSON payload into v.
func Into(text string, v any) error {
	payload := Locate(text)
	if !strings.HasPrefix(payload, "{") {
		return result.Wrap(result.KindParse, "extract.into", errNoObject)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return result.Wrap(result.KindParse, "extract.into", err)
	}
	return nil
}

// Symbols returns the tickers listed in a persisted trading response.
// Both the trading_plan.selected_stocks and the older
// execution_summary.stock_allocations layouts are understood.
func Symbols(response string) []string {
	var payload string
	if m := markerRe.FindStringSubmatch(response); m != nil {
		payload = m[1]
	} else if span, ok := markerSpan(response); ok {
		payload = span
	} else {
		payload = Locate(response)
	}

	var doc struct {
		TradingPlan struct {
			SelectedStocks []struct {
				Symbol string `json:"symbol"`
			} `json:"selected_stocks"`
		} `json:"trading_plan"`
		ExecutionSummary struct {
			StockAllocations []struct {
				Symbol string `json:"symbol"`
			} `json:"stock_allocations"`
		} `json:"execution_summary"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(sym string) {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			return
		}
		seen[sym] = true
		out = append(out, sym)
	}
	for _, s := range doc.TradingPlan.SelectedStocks {
		add(s.Symbol)
	}
	for _, s := range doc.ExecutionSummary.StockAllocations {
		add(s.Symbol)
	}
	return out
}

// FormatResponse renders the persisted response text understood by Symbols.
func FormatResponse(plan any, status string) (string, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return fmt.Sprintf("%s\n%s\n%s %s", PlanMarker, data, StatusMarker, status), nil
}

// Lines splits a model reply into trimmed non-empty lines, dropping list bullets.
func Lines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// StringList parses a JSON (or single-quoted) list of strings out of a
// model reply, e.g. ['AAPL', 'MSFT'].
func StringList(text string) ([]string, error) {
	payload := Locate(text)
	start := strings.Index(payload, "[")
	end := strings.LastIndex(payload, "]")
	if start < 0 || end <= start {
		return nil, result.Wrap(result.KindParse, "extract.list", errors.New("no list found"))
	}
	payload = strings.ReplaceAll(payload[start:end+1], "'", "\"")
	var out []string
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, result.Wrap(result.KindParse, "extract.list", err)
	}
	return out, nil
}
