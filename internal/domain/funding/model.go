package funding

import "time"

// Event is one funding contribution. ProjectTitle is copied at funding time
// so the event stays displayable when the project is not published.
type Event struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	Funder       string    `json:"funder"`
	Amount       int64     `json:"amount"`
	TxHash       string    `json:"tx_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Progress is raised funds against a project's goal.
type Progress struct {
	ProjectID string  `json:"project_id"`
	Goal      int64   `json:"goal"`
	Raised    int64   `json:"raised"`
	Funders   int     `json:"funders"`
	Fraction  float64 `json:"fraction"`
}
