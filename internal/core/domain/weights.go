package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Weight is an exact decimal amount of voting power.
type Weight = decimal.Decimal

// Weights maps a poll option label to the voting power assigned to it.
type Weights map[string]Weight

func init() {
	// Weights are rendered as JSON numbers rather than strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// WeightValidator checks a proposed weight distribution against a poll's
// options and the voting power budget of a single vote.
type WeightValidator struct {
	VotingPower Weight
}

func NewWeightValidator(votingPower Weight) *WeightValidator {
	return &WeightValidator{VotingPower: votingPower}
}

// Validate accepts weights iff its keys are exactly the option set, every
// weight is non-negative and the total does not exceed the voting power.
func (v *WeightValidator) Validate(weights Weights, options []string) error {
	optionSet := make(map[string]struct{}, len(options))
	for _, opt := range options {
		optionSet[opt] = struct{}{}
	}

	if len(weights) != len(optionSet) {
		return fmt.Errorf("%w: weight distribution must contain exactly the poll options", ErrInvalidWeights)
	}

	total := decimal.Zero
	for opt, w := range weights {
		if _, ok := optionSet[opt]; !ok {
			return fmt.Errorf("%w: %q is not an option of this poll", ErrInvalidWeights, opt)
		}
		if w.IsNegative() {
			return fmt.Errorf("%w: weight for %q cannot be negative", ErrInvalidWeights, opt)
		}
		total = total.Add(w)
	}

	if total.GreaterThan(v.VotingPower) {
		return fmt.Errorf("%w: total weight %s exceeds voting power %s", ErrInvalidWeights, total, v.VotingPower)
	}

	return nil
}

// Aggregate sums the weights of every vote per option. Every option is present
// in the result, and entries for options the poll does not declare are ignored.
func Aggregate(options []string, votes []Weights) Weights {
	result := make(Weights, len(options))
	for _, opt := range options {
		result[opt] = decimal.Zero
	}

	for _, vote := range votes {
		for opt, w := range vote {
			if current, ok := result[opt]; ok {
				result[opt] = current.Add(w)
			}
		}
	}

	return result
}

func TotalWeight(weights Weights) Weight {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	return total
}
