package domain

import "time"

// UpbitAccount holds the exchange API credentials a user linked. SecretKey is stored sealed.
type UpbitAccount struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	AccessKey string    `json:"accessKey" db:"access_key"`
	SecretKey string    `json:"-" db:"secret_key"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
