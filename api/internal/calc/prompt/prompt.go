// Package prompt builds the instruction sent to the vision model together with the drawing.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"calc-be/api/internal/calc/types"
)

const persona = `You are a mathematical expert. Examine this image very carefully and solve what is shown.`

const lookFor = `WHAT TO LOOK FOR:
1. DRAWN SHAPES: rectangles, circles, triangles with measurements labeled
2. WRITTEN TEXT: 'find area', 'find perimeter', 'solve for x', etc.
3. EQUATIONS: algebraic expressions with = sign
4. CALCULATIONS: arithmetic expressions like 2+3, 5×4, etc.
5. DIMENSIONS: numbers near shapes indicating length, width, radius`

const solve = `SOLVE PRECISELY:
- If you see a rectangle with dimensions and text asking for AREA → calculate length × width
- If you see a rectangle with dimensions and text asking for PERIMETER → calculate 2(length + width)
- If you see a circle with radius and text asking for AREA → calculate π × r²
- If you see equations with variables → solve for the variable
- If you see arithmetic expressions → calculate the exact result`

const important = `IMPORTANT: Look at the actual numbers drawn/written in the image, don't guess!`

// ReturnFormat is the literal output shape the model is asked to produce.
const ReturnFormat = `[{'expr': 'what_problem_you_solved', 'result': 'exact_numerical_answer', 'assign': False}]`

// Compose returns the instruction for one drawing. vars is embedded as JSON
// with non-ASCII text kept as is; nil vars are rendered as {}.
func Compose(vars types.VariableMap) (string, error) {
	vj, err := VarsJSON(vars)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(lookFor)
	b.WriteString("\n\n")
	b.WriteString(solve)
	b.WriteString("\n\n")
	b.WriteString(important)
	b.WriteString("\n\n")
	b.WriteString("Return format: " + ReturnFormat)
	b.WriteString("\n\n")
	b.WriteString("Variables: " + vj)
	b.WriteString("\n")
	b.WriteString("Return ONLY the Python list.")
	return b.String(), nil
}

// VarsJSON renders vars on one line without HTML escaping.
func VarsJSON(vars types.VariableMap) (string, error) {
	if vars == nil {
		vars = types.VariableMap{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(vars); err != nil {
		return "", fmt.Errorf("prompt: encode variables: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
