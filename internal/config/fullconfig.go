package config

import (
	"encoding/json"
	"strings"
)

// FullConfig is the application config stored in the database (options table,
// key="configs"). It holds everything operators may change at runtime.
type FullConfig struct {
	Site          SiteConfig    `json:"site"`
	URL           URLConfig     `json:"url"`
	BackupOptions BackupOptions `json:"backup_options"`
	S3Options     S3Options     `json:"s3_options"`
	UploadOptions UploadOptions `json:"upload_options"`
	BarkOptions   BarkOptions   `json:"bark_options"`
	AI            AIConfig      `json:"ai"`
}

type SiteConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type URLConfig struct {
	WebURL    string `json:"web_url"`
	ServerURL string `json:"server_url"`
	WSURL     string `json:"ws_url"`
}

type BackupOptions struct {
	Enable bool   `json:"enable"`
	Path   string `json:"path"`
}

// BarkOptions configures push alerts sent to a Bark server (rate limit
// breaches and other operator notifications).
type BarkOptions struct {
	Enable    bool   `json:"enable"`
	Key       string `json:"key"`
	ServerURL string `json:"server_url"`
}

type S3Options struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	CustomDomain    string `json:"custom_domain"`
	PathStyleAccess bool   `json:"path_style_access"`
}

// UploadOptions controls book file uploads. MirrorToS3 keeps the base64 data
// URL in the database (the canonical copy) and additionally pushes the raw
// file to S3 under Path.
type UploadOptions struct {
	MirrorToS3     bool   `json:"mirror_to_s3"`
	Path           string `json:"path"`
	AllowedFormats string `json:"allowed_formats"`
	MaxSizeMB      int    `json:"max_size_mb"`
}

type AIConfig struct {
	Providers             []AIProvider       `json:"providers"`
	AnalysisModel         *AIModelAssignment `json:"analysis_model,omitempty"`
	SearchModel           *AIModelAssignment `json:"search_model,omitempty"`
	RecommendationModel   *AIModelAssignment `json:"recommendation_model,omitempty"`
	EnableAnalysis        bool               `json:"enable_analysis"`
	EnableAutoAnalysis    bool               `json:"enable_auto_analysis"`
	EnableSemanticSearch  bool               `json:"enable_semantic_search"`
	EnableRecommendations bool               `json:"enable_recommendations"`
}

type AIModelAssignment struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

type AIProvider struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `json:"api_key"`
	Endpoint     string `json:"endpoint,omitempty"`
	DefaultModel string `json:"default_model"`
	Enabled      bool   `json:"enabled"`
}

func (a *AIModelAssignment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProviderID      string `json:"provider_id"`
		ProviderIDCamel string `json:"providerId"`
		Model           string `json:"model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.ProviderID = strings.TrimSpace(raw.ProviderID)
	if a.ProviderID == "" {
		a.ProviderID = strings.TrimSpace(raw.ProviderIDCamel)
	}
	a.Model = strings.TrimSpace(raw.Model)
	return nil
}

func (a *AIConfig) UnmarshalJSON(data []byte) error {
	next := *a
	var raw struct {
		Providers             []AIProvider    `json:"providers"`
		AnalysisModel         json.RawMessage `json:"analysis_model"`
		SearchModel           json.RawMessage `json:"search_model"`
		RecommendationModel   json.RawMessage `json:"recommendation_model"`
		EnableAnalysis        *bool           `json:"enable_analysis"`
		EnableAutoAnalysis    *bool           `json:"enable_auto_analysis"`
		EnableSemanticSearch  *bool           `json:"enable_semantic_search"`
		EnableRecommendations *bool           `json:"enable_recommendations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Providers != nil {
		next.Providers = raw.Providers
	}
	if raw.EnableAnalysis != nil {
		next.EnableAnalysis = *raw.EnableAnalysis
	}
	if raw.EnableAutoAnalysis != nil {
		next.EnableAutoAnalysis = *raw.EnableAutoAnalysis
	}
	if raw.EnableSemanticSearch != nil {
		next.EnableSemanticSearch = *raw.EnableSemanticSearch
	}
	if raw.EnableRecommendations != nil {
		next.EnableRecommendations = *raw.EnableRecommendations
	}

	var err error
	if len(raw.AnalysisModel) > 0 {
		next.AnalysisModel, err = parseAIModelAssignment(raw.AnalysisModel, next.AnalysisModel)
		if err != nil {
			return err
		}
	}
	if len(raw.SearchModel) > 0 {
		next.SearchModel, err = parseAIModelAssignment(raw.SearchModel, next.SearchModel)
		if err != nil {
			return err
		}
	}
	if len(raw.RecommendationModel) > 0 {
		next.RecommendationModel, err = parseAIModelAssignment(raw.RecommendationModel, next.RecommendationModel)
		if err != nil {
			return err
		}
	}

	*a = next
	return nil
}

func parseAIModelAssignment(raw json.RawMessage, fallback *AIModelAssignment) (*AIModelAssignment, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return fallback, nil
	}
	if trimmed == "null" {
		return nil, nil
	}

	// A bare string is the legacy "model only" form.
	var legacyModel string
	if err := json.Unmarshal(raw, &legacyModel); err == nil {
		legacyModel = strings.TrimSpace(legacyModel)
		if legacyModel == "" {
			return nil, nil
		}
		next := &AIModelAssignment{}
		if fallback != nil {
			*next = *fallback
		}
		next.Model = legacyModel
		return next, nil
	}

	next := &AIModelAssignment{}
	if fallback != nil {
		*next = *fallback
	}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, err
	}
	if strings.TrimSpace(next.ProviderID) == "" && strings.TrimSpace(next.Model) == "" {
		return nil, nil
	}
	return next, nil
}

// DefaultFullConfig returns sensible defaults for a fresh install.
func DefaultFullConfig() FullConfig {
	return FullConfig{
		Site: SiteConfig{
			Title:       "Vidyaverse",
			Description: "Your personalized digital library",
		},
		URL: URLConfig{
			WebURL:    "http://localhost:3000",
			ServerURL: "http://localhost:8000",
			WSURL:     "http://localhost:8000",
		},
		BackupOptions: BackupOptions{
			Enable: false,
			Path:   "backups/{Y}/{m}/backup-{Y}{m}{d}-{h}{i}{s}.zip",
		},
		S3Options: S3Options{
			Endpoint:        "",
			AccessKeyID:     "",
			SecretAccessKey: "",
			Bucket:          "",
			Region:          "",
			CustomDomain:    "",
			PathStyleAccess: false,
		},
		UploadOptions: UploadOptions{
			MirrorToS3:     false,
			Path:           "books/{Y}/{m}/{uuid}.{ext}",
			AllowedFormats: "pdf,txt,md",
			MaxSizeMB:      25,
		},
		BarkOptions: BarkOptions{
			Enable:    false,
			ServerURL: "https://api.day.app",
		},
		AI: AIConfig{
			Providers:             []AIProvider{},
			EnableAnalysis:        true,
			EnableAutoAnalysis:    true,
			EnableSemanticSearch:  true,
			EnableRecommendations: true,
		},
	}
}
