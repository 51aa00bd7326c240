package reporting

// StatsRequest selects the window the dashboard cards summarise.
type StatsRequest struct {
	Time string `json:"time,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// Me is the viewing staff member; empty leaves AssignedToMe at 0.
	Me string `json:"me,omitempty"`
}

// Stats feeds the dashboard cards.
type Stats struct {
	Total        int `json:"total"`
	Open         int `json:"open"`
	InProgress   int `json:"in_progress"`
	Done         int `json:"done"`
	AssignedToMe int `json:"assigned_to_me"`
}
