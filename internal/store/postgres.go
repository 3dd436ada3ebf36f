package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/takp-dkp/lootledger/internal/model"
)

// LedgerStore reads and updates the raid_loot table in Postgres. Pushes are
// batched and paced so a full backfill does not saturate the shared database.
type LedgerStore struct {
	pool    Pool
	limiter *rate.Limiter
	batch   int
	closeFn func()
}

// NewLedgerStore connects a pool to the ledger database.
func NewLedgerStore(ctx context.Context, connString string, batchSize int, pushRatePerS float64) (*LedgerStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	s := newLedgerStore(pool, batchSize, pushRatePerS)
	s.closeFn = pool.Close
	return s, nil
}

// newLedgerStore wires an existing pool; tests hand in a mock here.
func newLedgerStore(pool Pool, batchSize int, pushRatePerS float64) *LedgerStore {
	if batchSize < 1 {
		batchSize = 1000
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pushRatePerS > 0 {
		limiter = rate.NewLimiter(rate.Limit(pushRatePerS), 1)
	}
	return &LedgerStore{pool: pool, limiter: limiter, batch: batchSize}
}

// Close releases the connection pool.
func (s *LedgerStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
		return
	}
	s.pool.Close()
}

const fetchLedgerSQL = `SELECT id, raid_id, event_id, item_name, buyer_id, buyer_name, cost,
	COALESCE(assigned_owner_id, ''), COALESCE(assigned_owner_name, ''), COALESCE(assignment_provenance, '')
FROM raid_loot ORDER BY id`

// FetchLedger exports the full raid_loot table, row ids included, so a run
// can start from the authoritative store and push back by id.
func (s *LedgerStore) FetchLedger(ctx context.Context) ([]model.PurchaseEvent, error) {
	rows, err := s.pool.Query(ctx, fetchLedgerSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch ledger")
	}
	defer rows.Close()

	var out []model.PurchaseEvent
	for rows.Next() {
		var (
			id   int64
			row  model.PurchaseEvent
			prov string
		)
		if err := rows.Scan(&id, &row.RaidID, &row.EventID, &row.ItemName,
			&row.BuyerID, &row.BuyerName, &row.Cost,
			&row.AssignedOwnerID, &row.AssignedOwnerName, &prov); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ledger row")
		}
		row.RowID = strconv.FormatInt(id, 10)
		row.OriginalIndex = len(out)
		row.Provenance = model.Provenance(prov)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate ledger rows")
	}

	zap.L().Info("ledger fetched", zap.Int("rows", len(out)))
	return out, nil
}

const pushAssignmentSQL = `UPDATE raid_loot
SET assigned_owner_id = $1, assigned_owner_name = $2, assignment_provenance = $3
WHERE id = $4 AND COALESCE(assignment_provenance, '') <> 'manual'`

// PushAssignments applies assignment columns back to raid_loot by row id.
// Rows without a positive integer id are skipped; manual rows are guarded at
// the SQL level as well so a stale export can never overwrite one. Returns
// the number of rows updated.
func (s *LedgerStore) PushAssignments(ctx context.Context, rows []model.PurchaseEvent) (int64, error) {
	log := zap.L().With(zap.String("component", "push"))

	type update struct {
		id         int64
		ownerID    string
		ownerName  string
		provenance string
	}
	var updates []update
	for _, row := range rows {
		id, err := strconv.ParseInt(row.RowID, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if row.Provenance == model.ProvenanceManual {
			continue
		}
		updates = append(updates, update{
			id:         id,
			ownerID:    row.AssignedOwnerID,
			ownerName:  row.AssignedOwnerName,
			provenance: string(row.Provenance),
		})
	}
	if len(updates) == 0 {
		log.Info("nothing to push")
		return 0, nil
	}

	var total int64
	for start := 0; start < len(updates); start += s.batch {
		if err := s.limiter.Wait(ctx); err != nil {
			return total, eris.Wrap(err, "postgres: rate limit wait")
		}
		end := min(start+s.batch, len(updates))

		b := &pgx.Batch{}
		for _, u := range updates[start:end] {
			b.Queue(pushAssignmentSQL, u.ownerID, u.ownerName, u.provenance, u.id)
		}

		results := s.pool.SendBatch(ctx, b)
		for range updates[start:end] {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return total, eris.Wrap(err, "postgres: push batch")
			}
			total += tag.RowsAffected()
		}
		if err := results.Close(); err != nil {
			return total, eris.Wrap(err, "postgres: close batch")
		}

		log.Info("batch pushed", zap.Int("from", start), zap.Int("to", end))
	}

	log.Info("assignments pushed", zap.Int64("updated", total))
	return total, nil
}

const truncateCountsSQL = `TRUNCATE TABLE character_loot_assignment_counts`

const insertCountSQL = `INSERT INTO character_loot_assignment_counts (char_id, character_name, items_assigned)
VALUES ($1, $2, $3)`

// PushCounts replaces the character_loot_assignment_counts table with the
// given summary: truncate, then batched inserts, so the table always mirrors
// the latest run. Returns the number of rows inserted.
func (s *LedgerStore) PushCounts(ctx context.Context, counts []model.OwnerCount) (int64, error) {
	log := zap.L().With(zap.String("component", "push"))

	rows := make([]model.OwnerCount, 0, len(counts))
	for _, c := range counts {
		if c.CharacterID == "" {
			continue
		}
		rows = append(rows, c)
	}
	if len(rows) == 0 {
		log.Info("no counts to push")
		return 0, nil
	}

	if _, err := s.pool.Exec(ctx, truncateCountsSQL); err != nil {
		return 0, eris.Wrap(err, "postgres: truncate counts")
	}

	var total int64
	for start := 0; start < len(rows); start += s.batch {
		if err := s.limiter.Wait(ctx); err != nil {
			return total, eris.Wrap(err, "postgres: rate limit wait")
		}
		end := min(start+s.batch, len(rows))

		b := &pgx.Batch{}
		for _, c := range rows[start:end] {
			b.Queue(insertCountSQL, c.CharacterID, c.CharacterName, c.ItemsAssigned)
		}

		results := s.pool.SendBatch(ctx, b)
		for range rows[start:end] {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return total, eris.Wrap(err, "postgres: insert counts batch")
			}
			total += tag.RowsAffected()
		}
		if err := results.Close(); err != nil {
			return total, eris.Wrap(err, "postgres: close counts batch")
		}
	}

	log.Info("counts pushed", zap.Int64("inserted", total))
	return total, nil
}
