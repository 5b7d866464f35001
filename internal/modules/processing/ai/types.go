package ai

// AnalysisPayload is the task payload for queued book analysis.
type AnalysisPayload struct {
	BookID string `json:"book_id"`
}

type analyzeTaskDTO struct {
	BookID       string `json:"bookId"`
	BookIDLegacy string `json:"book_id"`
}

// bookCandidate is the shape a book takes inside ranking prompts. Only the
// fields the model needs to judge relevance are serialized.
type bookCandidate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	GradeLevel *string  `json:"grade_level"`
	Subject    *string  `json:"subject"`
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
}

// readBookContext describes an already-read book inside the recommendation
// prompt; ids are withheld so the model cannot recommend them back.
type readBookContext struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	GradeLevel *string `json:"grade_level"`
	Subject    *string `json:"subject"`
}

// RecommendationResult is one generated batch before hydration: the ranked
// book ids plus the model's (or a fallback's) reasoning sentence.
type RecommendationResult struct {
	BookIDs   []string
	Reasoning string
}

type modelInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created int64  `json:"created,omitempty"`
}

type providerModelsResponse struct {
	ProviderID   string      `json:"providerId"`
	ProviderName string      `json:"providerName"`
	ProviderType string      `json:"providerType"`
	Models       []modelInfo `json:"models"`
	Error        string      `json:"error,omitempty"`
}

type fetchModelsDTO struct {
	ProviderID string `json:"providerId"`
	Type       string `json:"type"`
	APIKey     string `json:"apiKey"`
	Endpoint   string `json:"endpoint"`
}

type testConnectionDTO struct {
	ProviderID string `json:"providerId"`
	Type       string `json:"type"`
	APIKey     string `json:"apiKey"`
	Endpoint   string `json:"endpoint"`
	Model      string `json:"model"`
}
