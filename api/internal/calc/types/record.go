package types

// Sentinel expr labels for records synthesized locally on failure.
const (
	ExprError        = "Error"
	ExprParsingError = "Parsing Error"
	ExprAPIError     = "API Error"
)

// Record is one solved problem reported by the model.
type Record struct {
	Expr   string `json:"expr"`
	Result string `json:"result"`
	Assign bool   `json:"assign"`
}

// VariableMap holds variable name -> value (string or number) known to the caller.
type VariableMap map[string]any

// Sentinel builds the single-record result used on every failure path.
func Sentinel(expr, msg string) []Record {
	return []Record{{Expr: expr, Result: msg, Assign: false}}
}

// BindAssignments stores result under expr for every record flagged assign.
// Returns the names that were bound. vars must be non-nil.
func BindAssignments(vars VariableMap, recs []Record) []string {
	var bound []string
	for _, r := range recs {
		if !r.Assign || r.Expr == "" {
			continue
		}
		vars[r.Expr] = r.Result
		bound = append(bound, r.Expr)
	}
	return bound
}
