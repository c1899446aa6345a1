// Package params holds the immutable-per-epoch policy of §3
// NetworkParameters, grounded on the teacher's params.ChainConfig /
// params.IstanbulConfig structs (params/protocol_params.go-style grouping
// of consensus knobs into one config object).
package params

import "github.com/leejw51/mychain/chain/coin"

// JailingParams groups the jailing-related policy knobs of §3.
type JailingParams struct {
	JailDuration         int64
	BlockSigningWindow   uint16
	MissedBlockThreshold int
}

// SlashingParams groups the slashing-related policy knobs of §3.
type SlashingParams struct {
	LivenessPercent  coin.Milli // e.g. 100 = 0.100
	ByzantinePercent coin.Milli
	SlashWaitPeriod  int64
}

// RewardsParams groups reward-distribution policy; left abstract beyond
// what §4 specifies in detail (fee collection and schedule activation are
// the only reward-affecting operations this core defines).
type RewardsParams struct {
	PeriodBonusCap coin.Coin
}

// NetworkParameters is the immutable-per-epoch policy object of §3.
type NetworkParameters struct {
	Fee                    coin.LinearFee
	RequiredStake          coin.Coin
	UnbondingPeriod        int64
	Jailing                JailingParams
	Slashing               SlashingParams
	Rewards                RewardsParams
	MaxValidators          int
	ChainHexID             string
	UnbondingMaxAge        int64 // consensus-engine's reported max_age_duration, for InitChain equivalence (§9 open question iii)
	UnbondingMaxAgeBlocks  uint64
}
