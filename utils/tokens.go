package utils

// AccessToken carries the identity claims embedded in the platform's access
// tokens. Token issuance lives in the account service; this backend only
// verifies and reads claims.
type AccessToken struct {
	ID   uint   `json:"ID"`
	Role string `json:"role"` // tenant, landlord, manager, admin
}
