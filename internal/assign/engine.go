// Package assign implements the loot-to-owner allocation engine: a greedy,
// per-account, order-sensitive pass that attributes each purchase to the
// account member who actually holds the item, bounded by per-character
// supply caps and never touching human-confirmed rows.
package assign

import (
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/takp-dkp/lootledger/internal/catalog"
	"github.com/takp-dkp/lootledger/internal/inventory"
	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/roster"
)

// Engine wires the directory, inventory index, and catalog into the
// allocation pass. All inputs are in memory before Run starts; the pass
// performs no I/O.
type Engine struct {
	dir       *roster.Directory
	inv       *inventory.Index
	cat       *catalog.Catalog
	raidDates map[string]string
	mode      model.RunMode
	// concurrency bounds the per-account fan-out. Accounts share no
	// running state, so decisions land in disjoint slots of the result.
	concurrency int
}

// New builds an engine. A nil raidDates map orders rows by raid id alone.
func New(dir *roster.Directory, inv *inventory.Index, cat *catalog.Catalog, raidDates map[string]string, mode model.RunMode, concurrency int) *Engine {
	if raidDates == nil {
		raidDates = map[string]string{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		dir:         dir,
		inv:         inv,
		cat:         cat,
		raidDates:   raidDates,
		mode:        mode,
		concurrency: concurrency,
	}
}

// accountState is the running state scoped to one account's pass. It is
// constructed fresh per account and discarded afterwards; nothing leaks
// across accounts.
type accountState struct {
	costSoFar  map[string]float64
	countSoFar map[string]int
	consumed   map[string]int // charID + "\x00" + item key → copies consumed
}

func newAccountState() *accountState {
	return &accountState{
		costSoFar:  map[string]float64{},
		countSoFar: map[string]int{},
		consumed:   map[string]int{},
	}
}

func consumedKey(charID, itemKey string) string {
	return charID + "\x00" + itemKey
}

// partition groups ledger row indices by the buyer's account. Buyers with no
// resolvable account form singleton partitions so they never compete with
// unrelated characters.
type partition struct {
	members []string // candidate pool; empty when the buyer is unknown entirely
	indices []int
}

// Run executes the allocation pass and returns one decision per ledger row
// (indexed by OriginalIndex) plus run statistics.
func (e *Engine) Run(rows []model.PurchaseEvent) ([]model.Decision, model.RunStats) {
	log := zap.L().With(zap.String("component", "assign"))

	decisions := make([]model.Decision, len(rows))
	stats := model.RunStats{RowsTotal: len(rows)}

	parts := e.partition(rows, &stats, decisions)

	// Deterministic account order is not required for correctness (each
	// account only writes its own row slots) but keeps logs stable.
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, key := range keys {
		part := parts[key]
		g.Go(func() error {
			local := model.RunStats{}
			e.runPartition(rows, part, decisions, &local, nil)
			mu.Lock()
			stats.Preserved += local.Preserved
			stats.Decided += local.Decided
			stats.Unassigned += local.Unassigned
			stats.Skipped += local.Skipped
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // partition workers never return errors

	log.Info("allocation pass complete",
		zap.Int("rows", stats.RowsTotal),
		zap.Int("preserved", stats.Preserved),
		zap.Int("decided", stats.Decided),
		zap.Int("unassigned", stats.Unassigned),
		zap.Int("skipped", stats.Skipped),
	)
	return decisions, stats
}

// partition buckets rows by account, resolving buyers through the directory.
// Rows with no buyer reference at all are skipped here and counted.
func (e *Engine) partition(rows []model.PurchaseEvent, stats *model.RunStats, decisions []model.Decision) map[string]*partition {
	parts := map[string]*partition{}
	for i, row := range rows {
		if row.BuyerID == "" && row.BuyerName == "" {
			// Manual rows are immutable even when their buyer reference
			// is gone; everything else with no buyer is unprocessable.
			if row.Manual() {
				stats.Preserved++
			} else {
				decisions[i] = model.Decision{Skipped: true}
				stats.Skipped++
			}
			continue
		}

		charID, known := e.dir.ResolveBuyer(row.BuyerID, row.BuyerName)

		key := ""
		var members []string
		if known {
			if acct, ok := e.dir.AccountOf(charID); ok {
				key = "acct:" + acct
				members = e.dir.Members(acct)
			}
		}
		if key == "" {
			// Unknown account: the buyer alone is the candidate pool.
			if charID != "" {
				key = "solo:" + charID
				members = []string{charID}
			} else {
				key = "solo-name:" + row.BuyerName
				members = nil
			}
		}

		p, ok := parts[key]
		if !ok {
			p = &partition{members: members}
			parts[key] = p
		}
		p.indices = append(p.indices, i)
	}
	return parts
}

// observer lets the inspect path watch a single row's evaluation without
// altering the pass itself.
type observer func(idx int, rule catalog.Rule, candidates []Candidate, d model.Decision)

// runPartition processes one account's rows in raid order against fresh
// running state.
func (e *Engine) runPartition(rows []model.PurchaseEvent, part *partition, decisions []model.Decision, stats *model.RunStats, obs observer) {
	indices := append([]int(nil), part.indices...)
	sort.Slice(indices, func(a, b int) bool {
		return e.lessRow(rows[indices[a]], rows[indices[b]])
	})

	state := newAccountState()

	for _, idx := range indices {
		row := rows[idx]

		// Human-confirmed rows are immutable and invisible to running
		// state.
		if row.Manual() {
			stats.Preserved++
			if obs != nil {
				obs(idx, catalog.Rule{}, nil, decisions[idx])
			}
			continue
		}

		if row.ItemName == "" {
			decisions[idx] = model.Decision{Skipped: true}
			stats.Skipped++
			if obs != nil {
				obs(idx, catalog.Rule{}, nil, decisions[idx])
			}
			continue
		}

		rule := e.cat.Classify(row.ItemName)

		// A prior machine assignment is kept in incremental mode, but its
		// owner and cost still feed the running totals so later rows in
		// this account see accurate state.
		if row.Assigned() && e.mode != model.ModeRecompute {
			owner := row.AssignedOwnerID
			if owner == "" {
				owner, _ = e.dir.ResolveBuyer("", row.AssignedOwnerName)
			}
			if owner != "" {
				state.costSoFar[owner] += row.Cost
				state.countSoFar[owner]++
				state.consumed[consumedKey(owner, rule.Key)]++
			}
			stats.Preserved++
			if obs != nil {
				obs(idx, rule, nil, decisions[idx])
			}
			continue
		}

		candidates := e.candidates(part.members, state, rule)
		d := e.decide(row, candidates, state, rule, stats)
		decisions[idx] = d
		if obs != nil {
			obs(idx, rule, candidates, d)
		}
	}
}

// Candidate is one account member still under its supply cap for an item.
type Candidate struct {
	CharID   string
	Held     int
	Consumed int
}

// candidates computes the eligible pool: members whose held-count under the
// rule is positive and whose consumption is still below it.
func (e *Engine) candidates(members []string, state *accountState, rule catalog.Rule) []Candidate {
	var out []Candidate
	for _, cid := range members {
		held := e.cat.HeldCount(e.inv, e.dir.InventoryID(cid), e.dir.Class(cid), rule)
		if held <= 0 {
			continue
		}
		used := state.consumed[consumedKey(cid, rule.Key)]
		if used >= held {
			continue
		}
		out = append(out, Candidate{CharID: cid, Held: held, Consumed: used})
	}
	return out
}

// decide picks the owner (or leaves the row unassigned) and updates running
// state. With several candidates the winner maximizes cost_so_far, then
// count_so_far; a full tie goes to the lowest character id, which is stable
// because members arrive sorted.
func (e *Engine) decide(row model.PurchaseEvent, candidates []Candidate, state *accountState, rule catalog.Rule, stats *model.RunStats) model.Decision {
	if len(candidates) == 0 {
		stats.Unassigned++
		d := model.Decision{}
		// Recompute clears stale machine assignments that no longer
		// have inventory backing.
		d.Changed = row.Assigned()
		return d
	}

	best := candidates[0].CharID
	for _, c := range candidates[1:] {
		if state.costSoFar[c.CharID] > state.costSoFar[best] {
			best = c.CharID
			continue
		}
		if state.costSoFar[c.CharID] == state.costSoFar[best] &&
			state.countSoFar[c.CharID] > state.countSoFar[best] {
			best = c.CharID
		}
	}

	state.costSoFar[best] += row.Cost
	state.countSoFar[best]++
	state.consumed[consumedKey(best, rule.Key)]++
	stats.Decided++

	d := model.Decision{
		OwnerID:    best,
		OwnerName:  e.dir.DisplayName(best),
		Provenance: model.ProvenanceInventory,
	}
	d.Changed = d.OwnerID != row.AssignedOwnerID ||
		d.OwnerName != row.AssignedOwnerName ||
		d.Provenance != row.Provenance
	return d
}

// lessRow orders rows by (raid date, raid id, event id, original index).
func (e *Engine) lessRow(a, b model.PurchaseEvent) bool {
	da, db := e.raidDates[a.RaidID], e.raidDates[b.RaidID]
	if da != db {
		return da < db
	}
	if c := compareID(a.RaidID, b.RaidID); c != 0 {
		return c < 0
	}
	if c := compareID(a.EventID, b.EventID); c != 0 {
		return c < 0
	}
	return a.OriginalIndex < b.OriginalIndex
}

// compareID compares identifiers numerically when both parse as integers,
// lexicographically otherwise.
func compareID(a, b string) int {
	if a == b {
		return 0
	}
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	if a < b {
		return -1
	}
	return 1
}
