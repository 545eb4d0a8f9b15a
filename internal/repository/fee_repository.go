package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const feeAccountColumns = `id, student_id, total_fees, amount_paid, balance, updated_at`

// FeeRepository persists fee accounts.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// FindByStudent returns the fee account owned by a student.
func (r *FeeRepository) FindByStudent(ctx context.Context, studentID string) (*models.FeeAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_accounts WHERE student_id = $1`, feeAccountColumns)
	var account models.FeeAccount
	if err := r.db.GetContext(ctx, &account, query, studentID); err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyPayment credits amount to the account and rewrites the cached balance.
func (r *FeeRepository) ApplyPayment(ctx context.Context, exec sqlx.ExtContext, accountID string, amount float64, at time.Time) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE fee_accounts
	SET amount_paid = amount_paid + $2, balance = total_fees - (amount_paid + $2), updated_at = $3
	WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, accountID, amount, at)
	if err != nil {
		return fmt.Errorf("apply fee payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check fee payment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
