package domain

import "time"

// User is a row of the users directory. Only the fields the relay needs
// are mapped; the coin/diamond economy columns are owned elsewhere.
type User struct {
	ID           string     `json:"id" db:"id"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	Gender       string     `json:"gender" db:"gender"`
	Country      string     `json:"country" db:"country"`
	IsPremium    bool       `json:"is_premium" db:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until" db:"premium_until"`
	BlockedIDs   []string   `json:"blocked_ids" db:"blocked_ids"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPremium reports whether the user is premium at the given instant.
func (u *User) HasPremium(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumUntil == nil || now.Before(*u.PremiumUntil)
}
