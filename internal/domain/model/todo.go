package model

type Todo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"` // 1 (low) to 5 (high)
	Completed   bool   `json:"completed"`
	OwnerID     int64  `json:"owner_id"`
}
