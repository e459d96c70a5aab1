package entity

import "time"

type Merchant struct {
	ID   string
	Name string

	Email     string
	APIKey    string
	APISecret string

	WebhookURL *string
	IsActive   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
