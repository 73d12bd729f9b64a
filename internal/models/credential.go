package models

// Credential is a session credential issued by the backend.
type Credential struct {
	Token     string `json:"token"`
	ServerURL string `json:"url"`
	RoomName  string `json:"room_name,omitempty"`
}

// TokenRequest is the body of the credential request.
type TokenRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

// QueryRequest is the body of the retrieval request.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResult is one row of the retrieval response.
type QueryResult struct {
	Content         string         `json:"content"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
}

// QueryResponse is the retrieval response body.
type QueryResponse struct {
	Query   string        `json:"query"`
	Results []QueryResult `json:"results"`
}

// ToSourceHit converts a wire result into a SourceHit.
func (r QueryResult) ToSourceHit() SourceHit {
	label, _ := r.Metadata["source"].(string)
	if label == "" {
		label = "Unknown"
	}
	return SourceHit{
		Label:           label,
		Content:         r.Content,
		SimilarityScore: r.SimilarityScore,
	}
}
