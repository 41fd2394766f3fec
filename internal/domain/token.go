package domain

import "time"

// Token is the persisted access/refresh pair for one login. Refresh overwrites
// Access and Refresh in place; TokenID never changes.
type Token struct {
	TokenID   string    `json:"id" dynamodbav:"token_id" db:"id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id" db:"user_id"`
	Access    string    `json:"access" dynamodbav:"access" db:"access"`
	Refresh   string    `json:"refresh" dynamodbav:"refresh" db:"refresh"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at" db:"updated_at"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
