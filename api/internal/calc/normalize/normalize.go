// Package normalize turns a free-text model reply into calculator records.
//
// Tiers run in order and stop at the first success:
//
//	strict     the reply minus code fences must be a literal list of dicts
//	bracketed  the first '[' .. last ']' span of the raw reply, parsed the same way
//
// When both fail a single sentinel record explains why.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"calc-be/api/internal/calc/types"
)

var (
	ErrNoList      = errors.New("no bracketed list in reply")
	ErrNotSequence = errors.New("literal is not a list of records")
	ErrNotMapping  = errors.New("list element is not a mapping")
)

// Sentinel messages, matching what the front end has always shown.
const (
	MsgNoList    = "Could not extract valid response"
	MsgMalformed = "Failed to parse response"
)

// Item is one raw mapping decoded from the reply, before postprocessing.
type Item map[string]any

func (it Item) keys() []string {
	ks := make([]string, 0, len(it))
	for k := range it {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Kind tells which way Normalize ended.
type Kind int

const (
	Parsed Kind = iota
	NoList
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case NoList:
		return "no_list"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the result of Normalize. Records is never nil; for NoList and
// Malformed it holds exactly one sentinel record and Reason the parse errors.
type Outcome struct {
	Kind    Kind
	Tier    string // tier that succeeded, empty on failure
	Records []types.Record
	Reason  error
}

type tier struct {
	name  string
	parse func(raw string) ([]Item, error)
}

var tiers = []tier{
	{name: "strict", parse: func(raw string) ([]Item, error) { return ParseStrict(StripFences(raw)) }},
	{name: "bracketed", parse: ParseBracketed},
}

// Normalize runs the tiers over raw and postprocesses whatever succeeded.
func Normalize(raw string) Outcome {
	var errs []error
	for _, t := range tiers {
		items, err := t.parse(raw)
		if err == nil {
			return Outcome{Kind: Parsed, Tier: t.name, Records: Records(items)}
		}
		errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
	}
	reason := errors.Join(errs...)
	if errors.Is(reason, ErrNoList) {
		return Outcome{Kind: NoList, Records: types.Sentinel(types.ExprParsingError, MsgNoList), Reason: reason}
	}
	return Outcome{Kind: Malformed, Records: types.Sentinel(types.ExprAPIError, MsgMalformed), Reason: reason}
}

// ParseStrict parses text as a literal sequence of mappings. A lone mapping
// is accepted as a one-element sequence.
func ParseStrict(text string) ([]Item, error) {
	v, err := ParseLiteral(text)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case Item:
		return []Item{x}, nil
	case []any:
		items := make([]Item, 0, len(x))
		for i, e := range x {
			m, ok := e.(Item)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, ErrNotMapping)
			}
			items = append(items, m)
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w (got %T)", ErrNotSequence, v)
}

// ParseBracketed strict-parses the greedy span between the first '[' and the
// last ']' of raw. A '[' that is never closed yields the span up to the end of
// raw, which then fails as malformed rather than as missing.
func ParseBracketed(raw string) ([]Item, error) {
	span, ok := bracketSpan(raw)
	if !ok {
		return nil, ErrNoList
	}
	return ParseStrict(span)
}

func bracketSpan(raw string) (string, bool) {
	i := strings.IndexByte(raw, '[')
	if i < 0 {
		return "", false
	}
	j := strings.LastIndexByte(raw, ']')
	if j < i {
		return raw[i:], true
	}
	return raw[i : j+1], true
}

// Records converts raw items into records. assign is true whenever the item
// carries an assign key, whatever its value.
func Records(items []Item) []types.Record {
	out := make([]types.Record, 0, len(items))
	for _, it := range items {
		_, hasAssign := it["assign"]
		out = append(out, types.Record{
			Expr:   Render(it["expr"]),
			Result: Render(it["result"]),
			Assign: hasAssign,
		})
	}
	return out
}
