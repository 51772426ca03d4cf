package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"calc-be/api/internal/calc"
	"calc-be/api/internal/calc/types"
)

const maxMessageLen = 3900

var errSetUsage = errors.New("usage: /set <name> <value>")

// formatRecords renders one reply line per solved expression.
func formatRecords(res calc.Result, bound []string) string {
	recs := res.Records
	if res.Failed() && len(recs) > 0 {
		return "⚠️ " + recs[0].Expr + ": " + recs[0].Result
	}
	if len(recs) == 0 {
		return "Nothing to solve on this image."
	}
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(r.Expr)
		if r.Result != "" {
			b.WriteString(" = ")
			b.WriteString(r.Result)
		}
		b.WriteString("\n")
	}
	if len(bound) > 0 {
		b.WriteString("\n💾 Saved: ")
		b.WriteString(strings.Join(bound, ", "))
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

func formatVars(vars types.VariableMap) string {
	if len(vars) == 0 {
		return "No variables yet. Draw an assignment like x = 5 or use /set x 5."
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	slices.Sort(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s = %v\n", k, vars[k])
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

// parseSet accepts "x 5" and "x = 5". Numeric values stay numbers in the prompt.
func parseSet(args string) (string, any, error) {
	args = strings.TrimSpace(args)
	name, value, ok := strings.Cut(args, "=")
	if !ok {
		name, value, ok = strings.Cut(args, " ")
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || name == "" || value == "" || strings.ContainsAny(name, " \t") {
		return "", nil, errSetUsage
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil && json.Valid([]byte(value)) {
		return name, json.Number(value), nil
	}
	return name, value, nil
}

func clip(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
