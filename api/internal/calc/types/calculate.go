package types

// CalculateRequest is the body of POST /calculate as sent by the canvas front end.
type CalculateRequest struct {
	Image      string      `json:"image"`                  // data URL or plain base64
	DictOfVars VariableMap `json:"dict_of_vars,omitempty"` // variables bound by earlier answers
	LLMName    string      `json:"llm_name,omitempty"`     // "gemini" | "gpt"; empty = default engine
}

type CalculateResponse struct {
	Message string   `json:"message"`
	Data    []Record `json:"data"`
	Status  string   `json:"status"`
}
