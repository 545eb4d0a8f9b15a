package models

// RegistrationPoint is one month of the cumulative registration chart for a role.
type RegistrationPoint struct {
	Month      string   `json:"month"`
	Role       UserRole `json:"role"`
	Registered int      `json:"registered"`
	Cumulative int      `json:"cumulative"`
}

// RegistrationCount is a raw monthly aggregate read from the store.
type RegistrationCount struct {
	Month string   `db:"month"`
	Role  UserRole `db:"role"`
	Count int      `db:"count"`
}
