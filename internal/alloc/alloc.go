package alloc

import (
	"fmt"
	"strings"

	"github.com/parthdesai/CrossArb/internal/arb"
)

// Policy selects how pre-filter weights are computed across opportunities.
type Policy string

const (
	PolicyEqual       Policy = "equal"
	PolicyROIWeighted Policy = "roi_weighted"
	PolicyKelly       Policy = "kelly"
)

// ParsePolicy maps a config string to a policy, defaulting to equal.
func ParsePolicy(input string) Policy {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(PolicyROIWeighted):
		return PolicyROIWeighted
	case string(PolicyKelly):
		return PolicyKelly
	default:
		return PolicyEqual
	}
}

const (
	// DefaultMinBet is the smallest per-leg stake the venues accept.
	DefaultMinBet = 5.0
	// DefaultKellyCap bounds each opportunity's raw Kelly fraction. A true
	// arbitrage has win probability 1, so the uncapped fraction is always 1
	// and the cap is the operative term.
	DefaultKellyCap = 0.25

	epsilon = 1e-9
)

// Config controls one allocation run. Zero values take package defaults.
type Config struct {
	TotalCapital float64
	Policy       Policy
	MinBet       float64
	KellyCap     float64
}

// Status is an opportunity's terminal state after the allocation pass.
type Status string

const (
	StatusAllocated Status = "allocated"
	StatusRejected  Status = "rejected"
)

// Allocation is the allocator's output for one opportunity. ProposedUSD is
// the weight-assigned amount before the minimum-bet filter; rejected entries
// release it back to unallocated and carry no capital.
type Allocation struct {
	Opportunity       arb.Opportunity `json:"opportunity"`
	Status            Status          `json:"status"`
	Reason            string          `json:"reason,omitempty"`
	ProposedUSD       float64         `json:"proposed_usd"`
	AllocatedUSD      float64         `json:"allocated_usd"`
	BetLegAUSD        float64         `json:"bet_leg_a_usd"`
	BetLegBUSD        float64         `json:"bet_leg_b_usd"`
	PriceLegA         float64         `json:"price_leg_a"`
	PriceLegB         float64         `json:"price_leg_b"`
	ExpectedProfitUSD float64         `json:"expected_profit_usd"`
	ROIPercent        float64         `json:"roi_percent"`
}

// Plan aggregates one allocation run. Allocations holds every opportunity
// with its terminal status; Warnings are advisory only and never indicate a
// failed run.
type Plan struct {
	Policy                 Policy       `json:"policy"`
	Allocations            []Allocation `json:"allocations"`
	TotalCapitalUSD        float64      `json:"total_capital_usd"`
	TotalDeployedUSD       float64      `json:"total_deployed_usd"`
	TotalUnallocatedUSD    float64      `json:"total_unallocated_usd"`
	TotalExpectedProfitUSD float64      `json:"total_expected_profit_usd"`
	OverallROIPercent      float64      `json:"overall_roi_percent"`
	Warnings               []string     `json:"warnings,omitempty"`
}

// Allocated returns the surviving allocations in plan order.
func (p Plan) Allocated() []Allocation {
	out := make([]Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		if a.Status == StatusAllocated {
			out = append(out, a)
		}
	}
	return out
}

// Allocate distributes capital across opportunities under the configured
// policy, enforcing the per-leg minimum bet. It never fails: degenerate
// inputs produce an empty or fully-unallocated plan plus warnings.
func Allocate(opps []arb.Opportunity, cfg Config) Plan {
	if cfg.MinBet <= 0 {
		cfg.MinBet = DefaultMinBet
	}
	if cfg.KellyCap <= 0 {
		cfg.KellyCap = DefaultKellyCap
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyEqual
	}

	plan := Plan{Policy: cfg.Policy, TotalCapitalUSD: cfg.TotalCapital}

	if cfg.TotalCapital > 0 {
		ws := weights(opps, cfg.Policy, cfg.KellyCap)
		for i, opp := range opps {
			a := buildAllocation(opp, cfg.TotalCapital*ws[i], cfg.MinBet)
			plan.Allocations = append(plan.Allocations, a)
			if a.Status == StatusAllocated {
				plan.TotalDeployedUSD += a.AllocatedUSD
				plan.TotalExpectedProfitUSD += a.ExpectedProfitUSD
			}
		}
	}

	plan.TotalUnallocatedUSD = cfg.TotalCapital - plan.TotalDeployedUSD
	if plan.TotalDeployedUSD > 0 {
		plan.OverallROIPercent = plan.TotalExpectedProfitUSD / plan.TotalDeployedUSD * 100
	}
	plan.Warnings = validate(plan, cfg)
	return plan
}

// buildAllocation splits the proposed capital between the legs in proportion
// to each leg's own bought-outcome price, which leaves both legs holding the
// same share count and the same payout whichever outcome resolves.
func buildAllocation(opp arb.Opportunity, proposed, minBet float64) Allocation {
	a := Allocation{Opportunity: opp, ProposedUSD: proposed}

	best := opp.Result.Best
	if best == nil {
		a.Status = StatusRejected
		a.Reason = "no profitable strategy"
		return a
	}

	priceA, priceB := arb.LegPrices(opp.Pair, best.Direction)
	a.PriceLegA = priceA
	a.PriceLegB = priceB

	total := priceA + priceB
	if total <= 0 {
		a.Status = StatusRejected
		a.Reason = "degenerate leg prices"
		return a
	}

	betA := proposed * priceA / total
	betB := proposed * priceB / total
	if betA < minBet || betB < minBet {
		a.Status = StatusRejected
		a.Reason = fmt.Sprintf("leg bet below minimum %.2f (a=%.2f, b=%.2f)", minBet, betA, betB)
		return a
	}

	a.Status = StatusAllocated
	a.AllocatedUSD = proposed
	a.BetLegAUSD = betA
	a.BetLegBUSD = betB
	// Both legs hold proposed/total shares; the winning side pays $1 each.
	a.ExpectedProfitUSD = proposed/total - proposed
	if proposed > 0 {
		a.ROIPercent = a.ExpectedProfitUSD / proposed * 100
	}
	return a
}

func weights(opps []arb.Opportunity, policy Policy, kellyCap float64) []float64 {
	n := len(opps)
	switch policy {
	case PolicyROIWeighted:
		raw := make([]float64, n)
		sum := 0.0
		for i, opp := range opps {
			if best := opp.Result.Best; best != nil && best.ROIPercent > 0 {
				raw[i] = best.ROIPercent
				sum += raw[i]
			}
		}
		if sum <= epsilon {
			return equalWeights(n)
		}
		return normalize(raw, sum)
	case PolicyKelly:
		raw := make([]float64, n)
		sum := 0.0
		for i, opp := range opps {
			raw[i] = clamp(kellyFraction(opp), 0, kellyCap)
			sum += raw[i]
		}
		if sum <= epsilon {
			return equalWeights(n)
		}
		return normalize(raw, sum)
	default:
		return equalWeights(n)
	}
}

// kellyFraction is the raw Kelly stake for a guaranteed win: with win
// probability 1 the fraction (odds-q)/odds is identically 1 whenever the
// odds 1/cost - 1 are positive. Degenerate costs yield zero.
func kellyFraction(opp arb.Opportunity) float64 {
	best := opp.Result.Best
	if best == nil || best.Cost <= 0 {
		return 0
	}
	if odds := 1/best.Cost - 1; odds <= 0 {
		return 0
	}
	return 1
}

func equalWeights(n int) []float64 {
	ws := make([]float64, n)
	if n == 0 {
		return ws
	}
	w := 1 / float64(n)
	for i := range ws {
		ws[i] = w
	}
	return ws
}

func normalize(raw []float64, sum float64) []float64 {
	ws := make([]float64, len(raw))
	for i, r := range raw {
		ws[i] = r / sum
	}
	return ws
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validate(plan Plan, cfg Config) []string {
	var warnings []string

	if cfg.TotalCapital > 0 && plan.TotalUnallocatedUSD > cfg.TotalCapital*0.5 {
		warnings = append(warnings, fmt.Sprintf(
			"%.1f%% of capital unallocated (%.2f of %.2f)",
			plan.TotalUnallocatedUSD/cfg.TotalCapital*100, plan.TotalUnallocatedUSD, cfg.TotalCapital))
	}

	allocated := 0
	for _, a := range plan.Allocations {
		if a.Status != StatusAllocated {
			continue
		}
		allocated++
		if a.BetLegAUSD+epsilon < cfg.MinBet || a.BetLegBUSD+epsilon < cfg.MinBet {
			warnings = append(warnings, fmt.Sprintf(
				"allocation %s has a leg below the %.2f minimum",
				a.Opportunity.Pair.ShortID(), cfg.MinBet))
		}
	}
	if allocated == 0 {
		warnings = append(warnings, "no opportunities received capital")
	}
	return warnings
}
