package domain

// TokenUsage is the normalized token accounting across all chat vendors
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ChatResult is the normalized response of a single chat call
type ChatResult struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// Source is a citation backing a grounded answer
type Source struct {
	Excerpt        string   `json:"excerpt"`
	FileName       string   `json:"file_name"`
	FileType       FileType `json:"file_type"`
	RelevanceScore float32  `json:"relevance_score"`
}

// RAGAnswer is the outcome of a question-answering request.
// Grounded is false when the answer was produced without retrieved
// context; Sources is empty in that case, never nil semantics beyond
// that.
type RAGAnswer struct {
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	ProviderID string     `json:"provider_id"`
	Grounded   bool       `json:"grounded"`
	Usage      TokenUsage `json:"usage"`
}
