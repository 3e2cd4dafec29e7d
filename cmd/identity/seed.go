package identity

import (
	"context"
	"time"
)

// DemoAccount is a development seed record.
type DemoAccount struct {
	Email       string
	DisplayName string
	Password    string
}

// DemoAccounts are the well-known development accounts. They exist only for
// local/demo deployments; production never seeds.
func DemoAccounts() []DemoAccount {
	return []DemoAccount{
		{Email: "john.doe@example.com", DisplayName: "John Doe", Password: "password123"},
		{Email: "jane.smith@example.com", DisplayName: "Jane Smith", Password: "password123"},
		{Email: "admin@company.com", DisplayName: "Admin User", Password: "admin123"},
	}
}

// SeedDemoAccounts creates the demo accounts, skipping any that already
// exist. Passwords are hashed like any other signup; nothing is stored in
// plain text.
func SeedDemoAccounts(ctx context.Context, store Store, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	for _, d := range DemoAccounts() {
		_, err := store.CreatePasswordAccount(ctx, CreatePasswordAccountInput{
			Email:       d.Email,
			DisplayName: d.DisplayName,
			Password:    d.Password,
			Now:         now,
		})
		if err != nil && !IsConflict(err) {
			return err
		}
	}
	return nil
}
