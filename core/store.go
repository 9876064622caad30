package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Store is the single source of truth for one tournament (§4.2). It is
// owned exclusively by the tournament driver; nothing outside core holds a
// reference to it.
type Store struct {
	startingBudget decimal.Decimal

	agents     map[AgentID]*AgentState
	agentOrder []AgentID

	periodLog []PeriodRecord

	pendingRescinds  []PendingRescind
	supplyInjections []SupplyInjection
}

// NewStore creates a fresh store with one zeroed AgentState per id, in
// registration order. Duplicate ids are a fatal construction error (§7).
func NewStore(startingBudget decimal.Decimal, agentIDs []AgentID) (*Store, error) {
	s := &Store{
		startingBudget: startingBudget,
		agents:         make(map[AgentID]*AgentState, len(agentIDs)),
		agentOrder:     make([]AgentID, 0, len(agentIDs)),
	}
	for _, id := range agentIDs {
		if _, exists := s.agents[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
		}
		s.agents[id] = &AgentState{
			ID:              id,
			RemainingBudget: startingBudget,
			StageTokens:     make(map[int]decimal.Decimal),
		}
		s.agentOrder = append(s.agentOrder, id)
	}
	return s, nil
}

// AgentIDs returns agents in registration order.
func (s *Store) AgentIDs() []AgentID {
	out := make([]AgentID, len(s.agentOrder))
	copy(out, s.agentOrder)
	return out
}

// AgentState returns a pointer to the live state for id, or an error if id
// is unknown.
func (s *Store) AgentState(id AgentID) (*AgentState, error) {
	st, ok := s.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return st, nil
}

// DeductBudget subtracts amount from agent's remaining budget, returning the
// new balance. Refuses to go negative (§4.2).
func (s *Store) DeductBudget(agent AgentID, amount decimal.Decimal) (decimal.Decimal, error) {
	st, err := s.AgentState(agent)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.GreaterThan(st.RemainingBudget) {
		return decimal.Zero, fmt.Errorf("%w: agent %s balance %s, deduction %s", ErrInsufficientFunds, agent, st.RemainingBudget, amount)
	}
	st.RemainingBudget = st.RemainingBudget.Sub(amount)
	return st.RemainingBudget, nil
}

// RefundBudget adds amount to agent's remaining budget. Always succeeds for
// a known agent (§4.2: "the store does not enforce the budget invariant on
// the refund path").
func (s *Store) RefundBudget(agent AgentID, amount decimal.Decimal) (decimal.Decimal, error) {
	st, err := s.AgentState(agent)
	if err != nil {
		return decimal.Zero, err
	}
	st.RemainingBudget = st.RemainingBudget.Add(amount)
	return st.RemainingBudget, nil
}

// AddHolding appends a holding and keeps per-stage token counts and
// weighted points consistent with it.
func (s *Store) AddHolding(agent AgentID, h Holding) error {
	st, err := s.AgentState(agent)
	if err != nil {
		return err
	}
	st.Holdings = append(st.Holdings, h)
	st.StageTokens[h.Stage] = st.StageTokens[h.Stage].Add(h.Quantity)
	st.WeightedPoints = st.WeightedPoints.Add(h.Quantity.Mul(h.PointsPerToken))
	return nil
}

// RemoveHolding removes the holding matching (stage, period) for agent,
// decrementing counters and returning it. ok is false if no matching
// holding exists (a no-op, not an error).
func (s *Store) RemoveHolding(agent AgentID, stage, period int) (h Holding, ok bool, err error) {
	st, err := s.AgentState(agent)
	if err != nil {
		return Holding{}, false, err
	}
	for i := range st.Holdings {
		if st.Holdings[i].Stage == stage && st.Holdings[i].Period == period {
			removed := st.Holdings[i]
			st.Holdings = append(st.Holdings[:i], st.Holdings[i+1:]...)
			st.StageTokens[stage] = st.StageTokens[stage].Sub(removed.Quantity)
			st.WeightedPoints = st.WeightedPoints.Sub(removed.Quantity.Mul(removed.PointsPerToken))
			return removed, true, nil
		}
	}
	return Holding{}, false, nil
}

// AppendPeriodRecord appends a record to the log. Prior records are never
// mutated by this call.
func (s *Store) AppendPeriodRecord(r PeriodRecord) {
	s.periodLog = append(s.periodLog, r)
}

// PeriodLog returns the append-only log built so far.
func (s *Store) PeriodLog() []PeriodRecord {
	out := make([]PeriodRecord, len(s.periodLog))
	copy(out, s.periodLog)
	return out
}

// FlipRescinded sets the matching record's Rescinded flag to RescindTrue.
// A no-op if no record matches (stage, period).
func (s *Store) FlipRescinded(stage, period int) {
	for i := range s.periodLog {
		if s.periodLog[i].Stage == stage && s.periodLog[i].PeriodInStage == period {
			s.periodLog[i].Rescinded = RescindTrue
			return
		}
	}
}

// AwardSP adds points to agent's SP total.
func (s *Store) AwardSP(agent AgentID, points decimal.Decimal) error {
	st, err := s.AgentState(agent)
	if err != nil {
		return err
	}
	st.SP = st.SP.Add(points)
	return nil
}

// EnqueuePendingRescind records a rescind awaiting revelation and its
// matching supply injection, and appends the rescinding agent's
// private-info entry. This is the atomic transition of §4.3 steps (iii)-(v);
// steps (i)-(ii) (holding removal, refund) are performed by the caller
// (the period runner) before this call.
func (s *Store) EnqueuePendingRescind(pr PendingRescind, inj SupplyInjection, info PrivateInfoEntry) error {
	st, err := s.AgentState(pr.Agent)
	if err != nil {
		return err
	}
	s.pendingRescinds = append(s.pendingRescinds, pr)
	s.supplyInjections = append(s.supplyInjections, inj)
	st.PrivateInfo = append(st.PrivateInfo, info)
	return nil
}

// RevealDueRescinds removes and returns every pending rescind whose
// reveal-at has arrived, flips the matching period record's flag, and
// purges the rescinding agent's matching private-info entry.
func (s *Store) RevealDueRescinds(absolutePeriod int) []PendingRescind {
	var due []PendingRescind
	var remaining []PendingRescind
	for _, pr := range s.pendingRescinds {
		if pr.RevealAt <= absolutePeriod {
			due = append(due, pr)
		} else {
			remaining = append(remaining, pr)
		}
	}
	s.pendingRescinds = remaining

	for _, pr := range due {
		s.FlipRescinded(pr.SourceStage, pr.SourcePeriod)
		if st, err := s.AgentState(pr.Agent); err == nil {
			filtered := st.PrivateInfo[:0:0]
			for _, entry := range st.PrivateInfo {
				if entry.RevealAtAbsolutePeriod == pr.RevealAt {
					continue
				}
				filtered = append(filtered, entry)
			}
			st.PrivateInfo = filtered
		}
	}
	return due
}

// SupplyDueThisPeriod sums tokens of every injection targeting
// absolutePeriod.
func (s *Store) SupplyDueThisPeriod(absolutePeriod int) decimal.Decimal {
	total := decimal.Zero
	for _, inj := range s.supplyInjections {
		if inj.TargetAbsolutePeriod == absolutePeriod {
			total = total.Add(inj.Tokens)
		}
	}
	return total
}

// StageRanking orders agents with > 0 tokens in stage by token count desc,
// then agent id asc (§4.2, §9 open question iii).
func (s *Store) StageRanking(stage int) []AgentID {
	type entry struct {
		id     AgentID
		tokens decimal.Decimal
	}
	entries := make([]entry, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		st := s.agents[id]
		tokens := st.StageTokens[stage]
		if tokens.GreaterThan(decimal.Zero) {
			entries = append(entries, entry{id: id, tokens: tokens})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].tokens.Equal(entries[j].tokens) {
			return entries[i].tokens.GreaterThan(entries[j].tokens)
		}
		return entries[i].id < entries[j].id
	})
	out := make([]AgentID, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// OverallRanking orders all agents by weighted points desc, then agent id
// asc.
func (s *Store) OverallRanking() []AgentID {
	type entry struct {
		id     AgentID
		points decimal.Decimal
	}
	entries := make([]entry, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		entries = append(entries, entry{id: id, points: s.agents[id].WeightedPoints})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].points.Equal(entries[j].points) {
			return entries[i].points.GreaterThan(entries[j].points)
		}
		return entries[i].id < entries[j].id
	})
	out := make([]AgentID, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
