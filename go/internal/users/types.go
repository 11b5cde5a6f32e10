package users

// CreateUserRequest carries the fields needed to create a user.
type CreateUserRequest struct {
	Username   string `json:"username"`
	BidBalance int    `json:"bid_balance"`
	Role       string `json:"role"`
}
