package queue

// AnalyzeJobMsg asks the worker to score one document's text against the
// current standards graph and replace its mapping set.
type AnalyzeJobMsg struct {
	Message       string   `json:"message"`
	CorrelationID string   `json:"correlation_id"`
	DocumentID    string   `json:"document_id"`
	Text          string   `json:"text"`
	Scope         []string `json:"scope,omitempty"`
}

// ReloadJobMsg asks the worker to rebuild the standards graph from the
// corpus directory and swap in the new generation.
type ReloadJobMsg struct {
	Message        string `json:"message"`
	CorrelationID  string `json:"correlation_id"`
	CorpusDir      string `json:"corpus_dir,omitempty"`
	FallbackToSeed bool   `json:"fallback_to_seed"`
}
