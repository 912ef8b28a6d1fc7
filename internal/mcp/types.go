package mcp

// --- Tool Arguments ---

type WalkArgs struct {
	Start    string `json:"start" jsonschema:"Title of the page the walk starts from"`
	Target   string `json:"target" jsonschema:"Title of the page to reach"`
	MaxSteps *int   `json:"max_steps,omitempty" jsonschema:"Maximum number of hops (default from server config)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"How many ranked links are considered per step (default from server config)"`
}

type WalkResult struct {
	RunID          string   `json:"run_id"`
	Status         string   `json:"status"`
	Reason         string   `json:"reason,omitempty"`
	Steps          int      `json:"steps"`
	Path           []string `json:"path"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

type LinksArgs struct {
	Title string `json:"title" jsonschema:"Exact page title"`
}

type LinksResult struct {
	Title string   `json:"title"`
	Links []string `json:"links"`
}
