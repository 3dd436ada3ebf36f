package assign

import (
	"github.com/rotisserie/eris"

	"github.com/takp-dkp/lootledger/internal/catalog"
	"github.com/takp-dkp/lootledger/internal/model"
)

// Explanation captures everything the engine saw when it evaluated one row:
// the candidate pool with held and consumed counts at that point in the
// account's pass, the classification rule, and the resulting decision.
type Explanation struct {
	Row        model.PurchaseEvent
	Members    []string
	RuleKind   string
	RuleKey    string
	Slot       string
	Material   string
	Candidates []Candidate
	Decision   model.Decision
	Manual     bool
	Preserved  bool
}

// Explain replays the account pass containing the target row and reports how
// that row was (or would be) decided. The replay runs sequentially and
// mutates nothing shared.
func (e *Engine) Explain(rows []model.PurchaseEvent, target int) (*Explanation, error) {
	if target < 0 || target >= len(rows) {
		return nil, eris.Errorf("assign: row index %d out of range (%d rows)", target, len(rows))
	}

	decisions := make([]model.Decision, len(rows))
	stats := model.RunStats{}
	parts := e.partition(rows, &stats, decisions)

	var part *partition
	for _, p := range parts {
		for _, idx := range p.indices {
			if idx == target {
				part = p
				break
			}
		}
		if part != nil {
			break
		}
	}
	if part == nil {
		// Partitioning skipped the row (no buyer reference at all).
		return &Explanation{Row: rows[target], Decision: model.Decision{Skipped: true}}, nil
	}

	exp := &Explanation{Row: rows[target], Members: part.members}
	e.runPartition(rows, part, decisions, &model.RunStats{}, func(idx int, rule catalog.Rule, candidates []Candidate, d model.Decision) {
		if idx != target {
			return
		}
		exp.RuleKind = rule.Kind.String()
		exp.RuleKey = rule.Key
		exp.Slot = rule.Slot
		exp.Material = rule.Material
		exp.Candidates = candidates
		exp.Decision = d
		exp.Manual = rows[idx].Manual()
		exp.Preserved = rows[idx].Assigned() && !d.Changed && !rows[idx].Manual()
	})
	return exp, nil
}
