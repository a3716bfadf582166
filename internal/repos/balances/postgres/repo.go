package balances

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
)

var _ balances.Balances = (*balancesRepo)(nil)

type balancesRepo struct{ db *sql.DB }

func New(db *sql.DB) *balancesRepo {
	return &balancesRepo{db: db}
}

const balanceColumns = `holder_id, counterparty_id, total_units, reserved_units,
	avg_acquisition_price, created_at, updated_at`

func scanBalance(row *sql.Row) (balances.Balance, error) {
	var b balances.Balance

	err := row.Scan(
		&b.HolderID, &b.CounterpartyID, &b.TotalUnits, &b.ReservedUnits,
		&b.AvgAcquisitionPrice, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return balances.Balance{}, err
	}

	return b, nil
}

// scanMutation maps "no row returned" from a conditional UPDATE to onNoRows.
func scanMutation(row *sql.Row, op string, onNoRows error) (balances.Balance, error) {
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balances.Balance{}, onNoRows
		}

		return balances.Balance{}, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}
