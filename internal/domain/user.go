package domain

// User is a registered account. The record store compares passwords as
// plaintext; nothing on this side hashes or stores them.
type User struct {
	ID       ID     `json:"id,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}
