package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

// Executor is the subset of a pgx pool used by the set-based loader.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pricePgx struct {
	conn Executor
}

var _ usecase.Loader = (*pricePgx)(nil)

// NewPricePgxLoader returns a loader that inserts a whole batch in one
// statement. It expects the daily_prices table created by the gorm migration.
func NewPricePgxLoader(conn Executor) *pricePgx {
	return &pricePgx{conn: conn}
}

const insertPricesSQL = `INSERT INTO daily_prices
	(symbol, price_date, open_price, high_price, low_price, close_price, volume, loaded_at)
SELECT $1, t.d, t.o, t.h, t.l, t.c, t.v, now()
FROM unnest($2::date[], $3::float8[], $4::float8[], $5::float8[], $6::float8[], $7::bigint[])
	AS t(d, o, h, l, c, v)
ON CONFLICT (symbol, price_date) DO NOTHING`

func (r *pricePgx) Load(ctx context.Context, symbol string, observations []entity.Observation) (entity.LoadResult, error) {
	rows := prepare(symbol, observations)
	res := entity.LoadResult{Skipped: len(observations) - len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	var (
		dates  = make([]time.Time, len(rows))
		opens  = make([]float64, len(rows))
		highs  = make([]float64, len(rows))
		lows   = make([]float64, len(rows))
		closes = make([]float64, len(rows))
		vols   = make([]int64, len(rows))
	)
	for i, o := range rows {
		dates[i] = o.Date
		opens[i] = o.Open
		highs[i] = o.High
		lows[i] = o.Low
		closes[i] = o.Close
		vols[i] = o.Volume
	}

	tag, err := r.conn.Exec(ctx, insertPricesSQL, symbol, dates, opens, highs, lows, closes, vols)
	if err != nil {
		return entity.LoadResult{}, fmt.Errorf("%w: insert daily prices %s: %w", usecase.ErrStoreUnavailable, symbol, err)
	}
	res.Inserted = int(tag.RowsAffected())
	res.Skipped += len(rows) - res.Inserted
	return res, nil
}
