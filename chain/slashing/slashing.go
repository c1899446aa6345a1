// Package slashing implements the per-account pending slash of §3, §4.6:
// aggregated ratio, earliest activation time, and dominant punishment
// kind, merged monotonically as faults accrue and activated once block
// time reaches the schedule. Grounded on the teacher's weighted validator
// bookkeeping (consensus/istanbul/validator/weighted.go) for the
// voting-power-affecting side effects of a slash.
package slashing

import (
	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
)

// Entry is the pending slash for one account (§3, §4.6).
type Entry struct {
	Ratio        coin.Milli
	ScheduledFor int64
	Kind         account.PunishmentKind
}

// Schedule maps staking addresses to their pending slash.
type Schedule struct {
	entries map[account.Address]*Entry
}

// New returns an empty schedule.
func New() *Schedule {
	return &Schedule{entries: make(map[account.Address]*Entry)}
}

func maxMilli(a, b coin.Milli) coin.Milli {
	if a > b {
		return a
	}
	return b
}

func dominantKind(a, b account.PunishmentKind) account.PunishmentKind {
	if a > b {
		return a
	}
	return b
}

// Merge creates or updates the pending slash for addr at time t: a new
// entry is scheduled for t+waitPeriod; an existing one before activation
// takes the max ratio and the dominant kind (§4.6).
func (s *Schedule) Merge(addr account.Address, ratio coin.Milli, kind account.PunishmentKind, t int64, waitPeriod int64) {
	existing, ok := s.entries[addr]
	if !ok {
		s.entries[addr] = &Entry{Ratio: ratio, ScheduledFor: t + waitPeriod, Kind: kind}
		return
	}
	existing.Ratio = maxMilli(existing.Ratio, ratio)
	existing.Kind = dominantKind(existing.Kind, kind)
}

// Get returns the pending entry for addr, if any.
func (s *Schedule) Get(addr account.Address) (*Entry, bool) {
	e, ok := s.entries[addr]
	return e, ok
}

// Clear removes the pending entry for addr (called on activation).
func (s *Schedule) Clear(addr account.Address) {
	delete(s.entries, addr)
}

// DueAt returns every address whose schedule has reached activation at
// blockTime (scheduled_for <= block_time), for BeginBlock's activation pass
// (§4.9).
func (s *Schedule) DueAt(blockTime int64) []account.Address {
	var due []account.Address
	for addr, e := range s.entries {
		if e.ScheduledFor <= blockTime {
			due = append(due, addr)
		}
	}
	return due
}

// Jail immediately punishes acc at fault-detection time (§4.9): sets
// jailed_until, records the punishment kind, and drops its council_node
// binding so it stops counting as a validator the instant the fault is
// observed — independent of when the slash ratio merged into the schedule
// actually activates.
func Jail(acc *account.StakingAccount, kind account.PunishmentKind, blockTime int64, jailDuration int64) {
	until := blockTime + jailDuration
	acc.JailedUntil = &until
	acc.Punishment = &account.Punishment{Kind: kind, JailedUntil: until}
	acc.CouncilNode = nil
}

// Proportion implements §4.9's slashing_proportion =
// 1/sqrt(offenderPower/totalPower), clamped to <= 1. While offenderPower
// does not exceed totalPower, 1/sqrt(...) is at least 1 and the result is
// 1; it drops below 1 only when offenderPower exceeds totalPower.
func Proportion(offenderPower, totalPower int64) coin.Milli {
	one := coin.NewMilliFromIntegral(1)
	if offenderPower <= 0 || totalPower <= 0 {
		return one
	}
	ratio := coin.NewMilliFromIntegral(uint64(offenderPower)).Div(coin.NewMilliFromIntegral(uint64(totalPower)))
	root := ratio.Sqrt()
	if root == 0 {
		return one
	}
	p := one.Div(root)
	if p > one {
		p = one
	}
	return p
}

// Activate applies the pending slash to acc: deducts slash = bonded*ratio
// from bonded (saturating to bonded), returns the slashed amount to credit
// to the rewards pool, and records it against the account's punishment
// (already jailed by Jail at fault-detection time). Clears the schedule
// entry (§4.6).
func Activate(s *Schedule, acc *account.StakingAccount, blockTime int64, jailDuration int64) (coin.Coin, error) {
	e, ok := s.Get(acc.Address)
	if !ok {
		return coin.Zero, nil
	}

	slashMilli := acc.Bonded.Milli().Mul(e.Ratio)
	slash, err := coin.NewCoin(slashMilli)
	if err != nil {
		return coin.Zero, err
	}
	if slash.GreaterEqual(acc.Bonded) {
		slash = acc.Bonded
	}
	acc.Bonded = acc.Bonded.Sub(slash)

	if acc.Punishment != nil {
		acc.Punishment.SlashAmount = &slash
	} else {
		until := blockTime + jailDuration
		acc.JailedUntil = &until
		acc.Punishment = &account.Punishment{Kind: e.Kind, JailedUntil: until, SlashAmount: &slash}
	}

	s.Clear(acc.Address)
	return slash, nil
}
