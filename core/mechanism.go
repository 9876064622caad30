package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ClearResult is what a clearing mechanism returns for one period.
type ClearResult struct {
	ClearingPrice   decimal.Decimal
	Allocations     []Allocation
	TokensAllocated decimal.Decimal
	Metadata        map[string]any
}

// Mechanism is a pure function of (valid bids, supply, floor) →
// (clearing price, allocations) (§4.1). Implementations must be
// deterministic, including ordering-dependent tiebreaks.
type Mechanism interface {
	Clear(bids []Bid, supply, floor decimal.Decimal) (ClearResult, error)
}

// unimplementedMechanism backs the three reserved tags (§4.1.3): it is
// enumerated by the registry and always fails its availability probe.
type unimplementedMechanism struct{}

func (unimplementedMechanism) Clear(bids []Bid, supply, floor decimal.Decimal) (ClearResult, error) {
	return ClearResult{}, ErrUnimplemented
}

// MechanismRegistry maps a mechanism tag to its implementation (§6.2).
type MechanismRegistry struct {
	mechanisms map[MechanismTag]Mechanism
}

// NewRegistry builds a registry preloaded with the two implemented
// mechanisms and the three reserved-but-unimplemented tags.
func NewRegistry() *MechanismRegistry {
	return &MechanismRegistry{
		mechanisms: map[MechanismTag]Mechanism{
			MechanismSecondPriceSingleWinner: SecondPriceMechanism{},
			MechanismUniformPriceMultiWinner: UniformPriceMechanism{},
			MechanismDiscriminatoryPayAsBid:  unimplementedMechanism{},
			MechanismDescendingPrice:         unimplementedMechanism{},
			MechanismSealedFirstPrice:        unimplementedMechanism{},
		},
	}
}

// Resolve returns the mechanism registered under tag, or an error if tag is
// unknown to the registry entirely (not merely reserved).
func (r *MechanismRegistry) Resolve(tag MechanismTag) (Mechanism, error) {
	m, ok := r.mechanisms[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, tag)
	}
	return m, nil
}

// ListTags returns every tag the registry knows about, implemented or
// reserved, in deterministic order.
func (r *MechanismRegistry) ListTags() []MechanismTag {
	tags := make([]MechanismTag, 0, len(r.mechanisms))
	for tag := range r.mechanisms {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Available probes tag by invoking its mechanism with an empty bid set at
// zero supply and zero floor. Reserved mechanisms fail this probe.
func (r *MechanismRegistry) Available(tag MechanismTag) bool {
	m, err := r.Resolve(tag)
	if err != nil {
		return false
	}
	_, err = m.Clear(nil, decimal.Zero, decimal.Zero)
	return err == nil
}

// sortBidsByPriceDesc orders bids by price descending, breaking ties by
// earliest SubmittedAt (FIFO), the shared ordering step both implemented
// mechanisms build on.
func sortBidsByPriceDesc(bids []Bid) []Bid {
	sorted := make([]Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PricePerToken.Equal(sorted[j].PricePerToken) {
			return sorted[i].PricePerToken.GreaterThan(sorted[j].PricePerToken)
		}
		return sorted[i].SubmittedAt < sorted[j].SubmittedAt
	})
	return sorted
}
