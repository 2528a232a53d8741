package reddit

import "time"

// Record kinds. A record is either a submitted post or a comment.
const (
	KindPost    = "post"
	KindComment = "comment"
)

// ActivityRecord is one item of a user's public activity.
type ActivityRecord struct {
	Kind      string    `json:"kind"`
	Subreddit string    `json:"subreddit"` // prefixed form, e.g. "r/golang"
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	Score     int       `json:"score"`
	Permalink string    `json:"permalink,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
