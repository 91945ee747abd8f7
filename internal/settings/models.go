package settings

// DefaultModel is used whenever the configured model id is blank or unknown.
const DefaultModel = "gemini-2.0-flash"

// ModelInfo describes a selectable model and its published free-tier limits.
type ModelInfo struct {
	ID                string `json:"id"`
	RequestsPerMinute int    `json:"requestsPerMinute"`
	TokensPerMinute   int    `json:"tokensPerMinute"`
}

var models = []ModelInfo{
	{ID: "gemini-2.0-flash", RequestsPerMinute: 2, TokensPerMinute: 500000},
	{ID: "gemini-flash-latest", RequestsPerMinute: 15, TokensPerMinute: 1000000},
	{ID: "gemini-pro-latest", RequestsPerMinute: 2, TokensPerMinute: 32000},
}

// Models lists the selectable models.
func Models() []ModelInfo {
	return append([]ModelInfo(nil), models...)
}

// LookupModel returns the catalog entry for id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ResolveModel maps unknown or blank ids to DefaultModel.
func ResolveModel(id string) string {
	if _, ok := LookupModel(id); ok {
		return id
	}
	return DefaultModel
}
