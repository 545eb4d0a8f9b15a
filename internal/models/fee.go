package models

import (
	"math"
	"time"
)

// FeeAccount tracks what a student owes. Balance is a cached projection of TotalFees - AmountPaid.
type FeeAccount struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	TotalFees  float64   `db:"total_fees" json:"total_fees"`
	AmountPaid float64   `db:"amount_paid" json:"amount_paid"`
	Balance    float64   `db:"balance" json:"balance"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DerivedBalance recomputes the balance from its inputs.
func (a FeeAccount) DerivedBalance() float64 {
	return roundCents(a.TotalFees - a.AmountPaid)
}

// Drifted reports whether the cached balance disagrees with the derived one.
func (a FeeAccount) Drifted() bool {
	return math.Abs(a.Balance-a.DerivedBalance()) >= 0.005
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
