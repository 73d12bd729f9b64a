package models

// QueryStatus is the lifecycle state of a retrieval query.
type QueryStatus string

const (
	QueryIdle      QueryStatus = "idle"
	QueryLoading   QueryStatus = "loading"
	QuerySucceeded QueryStatus = "succeeded"
	QueryFailed    QueryStatus = "failed"
)

// SourceHit is one supporting excerpt returned by the retrieval backend.
// SimilarityScore is a distance: lower means closer.
type SourceHit struct {
	Label           string  `json:"label"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarityScore"`
}

// MatchPercent renders the score as a 0-100 match figure.
func (h SourceHit) MatchPercent() int {
	if h.SimilarityScore < 0 {
		return 100
	}
	return int(100/(1+h.SimilarityScore) + 0.5)
}

// RetrievalQuery is the single live query owned by the dispatch controller.
type RetrievalQuery struct {
	QueryText string      `json:"queryText"`
	Status    QueryStatus `json:"status"`
	Results   []SourceHit `json:"results"`
}
