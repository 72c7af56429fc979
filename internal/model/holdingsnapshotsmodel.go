package model

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ HoldingSnapshotsModel = (*defaultHoldingSnapshotsModel)(nil)

type (
	// HoldingSnapshotsModel stores periodic valuations of every balance.
	HoldingSnapshotsModel interface {
		Insert(ctx context.Context, rows []HoldingSnapshot) error
		FindSince(ctx context.Context, since time.Time) ([]HoldingSnapshot, error)
		TotalUsdSeries(ctx context.Context, since time.Time) ([]TotalPoint, error)
	}

	// HoldingSnapshot is one balance valued at one instant.
	HoldingSnapshot struct {
		Id        int64           `db:"id"`
		Exchange  string          `db:"exchange"`
		Symbol    string          `db:"symbol"`
		Amount    decimal.Decimal `db:"amount"`
		AmountBtc decimal.Decimal `db:"amount_btc"`
		AmountUsd decimal.Decimal `db:"amount_usd"`
		Ts        time.Time       `db:"ts"`
	}

	// TotalPoint is the summed USD value of all holdings at one instant.
	TotalPoint struct {
		Ts       time.Time       `db:"ts"`
		TotalUsd decimal.Decimal `db:"total_usd"`
	}

	defaultHoldingSnapshotsModel struct {
		conn sqlx.SqlConn
	}
)

// NewHoldingSnapshotsModel returns a model for the holding_snapshots table.
func NewHoldingSnapshotsModel(conn sqlx.SqlConn) HoldingSnapshotsModel {
	return &defaultHoldingSnapshotsModel{conn: conn}
}

func (m *defaultHoldingSnapshotsModel) Insert(ctx context.Context, rows []HoldingSnapshot) error {
	query := `
INSERT INTO holding_snapshots (exchange, symbol, amount, amount_btc, amount_usd, ts)
VALUES ($1, $2, $3, $4, $5, $6)`

	for _, row := range rows {
		_, err := m.conn.ExecCtx(ctx, query,
			row.Exchange, row.Symbol, row.Amount, row.AmountBtc, row.AmountUsd, row.Ts)
		if err != nil {
			return fmt.Errorf("holdingSnapshots.Insert %s/%s: %w", row.Exchange, row.Symbol, err)
		}
	}
	return nil
}

func (m *defaultHoldingSnapshotsModel) FindSince(ctx context.Context, since time.Time) ([]HoldingSnapshot, error) {
	query := `
SELECT id, exchange, symbol, amount, amount_btc, amount_usd, ts
FROM holding_snapshots
WHERE ts >= $1
ORDER BY ts ASC, exchange ASC, symbol ASC`

	var rows []HoldingSnapshot
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("holdingSnapshots.FindSince query: %w", err)
	}
	return rows, nil
}

func (m *defaultHoldingSnapshotsModel) TotalUsdSeries(ctx context.Context, since time.Time) ([]TotalPoint, error) {
	query := `
SELECT ts, SUM(amount_usd) AS total_usd
FROM holding_snapshots
WHERE ts >= $1
GROUP BY ts
ORDER BY ts ASC`

	var points []TotalPoint
	if err := m.conn.QueryRowsCtx(ctx, &points, query, since); err != nil {
		return nil, fmt.Errorf("holdingSnapshots.TotalUsdSeries query: %w", err)
	}
	return points, nil
}
