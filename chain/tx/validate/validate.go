// Package validate implements the transaction validator dispatcher of
// §4.8: verify(tx, chain_info, account_root, db, account_store) -> (fee,
// updated_account?). It selects the local validator for staking operations
// and forwards UTXO-touching operations to the enclave, then applies the
// local checks of the dispatch table.
package validate

import (
	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	chainerrors "github.com/leejw51/mychain/chain/errors"
	"github.com/leejw51/mychain/chain/enclave"
	chainlog "github.com/leejw51/mychain/chain/log"
	"github.com/leejw51/mychain/chain/params"
	"github.com/leejw51/mychain/chain/tx"
	"github.com/leejw51/mychain/chain/utxo"
)

var logger = chainlog.NewModuleLogger(chainlog.TxValidate)

// ChainInfo carries the per-block context validation needs (§4.8).
type ChainInfo struct {
	ChainHexID string
	BlockTime  int64
}

// AccountLookup resolves a staking account by address against a given
// trie root, the account-store side of the dispatcher's signature (§4.8).
type AccountLookup interface {
	Get(addr account.Address) (*account.StakingAccount, bool, error)
}

// Result is what DeliverTx/CheckTx need from a successful validation:
// the fee charged and, for transactions with an account-level effect, the
// updated account to insert into the trie (§4.8, §4.9).
type Result struct {
	Fee            coin.Coin
	UpdatedAccount *account.StakingAccount
	// SpendInputs holds every input a TransferTx or DepositStakeTx
	// consumed, so DeliverTx can mark them spent in the UTXO map (§4.9).
	SpendInputs []utxo.TxoPointer
	// SealedTx holds the sealed transaction bytes the enclave returned for a
	// TransferTx, or for a WithdrawUnbondedStakeTx when the enclave supplied
	// them.
	SealedTx []byte
}

// Dispatch runs §4.8's table against t, forwarding to the enclave proxy
// where the table calls for it.
func Dispatch(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, enc enclave.Proxy, accounts AccountLookup, encodedLen int) (Result, error) {
	switch t.Kind {
	case tx.KindTransfer:
		return dispatchTransfer(t, info, np, enc)
	case tx.KindDepositStake:
		return dispatchDepositStake(t, info, np, enc, accounts)
	case tx.KindWithdrawUnbondedStake:
		return dispatchWithdrawUnbonded(t, info, np, enc, accounts)
	case tx.KindUnbondStake:
		return dispatchUnbondStake(t, info, np, accounts, encodedLen)
	case tx.KindUnjail:
		return dispatchUnjail(t, info, accounts, np, encodedLen)
	case tx.KindNodeJoin:
		return dispatchNodeJoin(t, info, np, accounts, encodedLen)
	default:
		return Result{}, chainerrors.New(chainerrors.KindParse, "validate: unknown tx kind")
	}
}

func localFee(np *params.NetworkParameters, encodedLen int) (coin.Coin, error) {
	fee, err := np.Fee.Estimate(uint64(encodedLen))
	if err != nil {
		return coin.Coin{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: fee estimate overflow")
	}
	return fee, nil
}

func dispatchTransfer(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, enc enclave.Proxy) (Result, error) {
	raw, err := t.Encode()
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindParse, err, "validate: encode transfer tx")
	}
	minFee, err := localFee(np, len(raw))
	if err != nil {
		return Result{}, err
	}

	resp, err := enc.ValidateTx(enclave.ValidateTxRequest{Tx: raw, Info: enclave.TxInfo{ChainHexID: info.ChainHexID, BlockTime: info.BlockTime}})
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindEnclaveRejected, err, "validate: enclave call failed")
	}
	if !resp.OK || resp.TxWithOutputs == nil {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: transfer tx rejected by enclave")
	}
	if resp.TxWithOutputs.Fee.Milli() < minFee.Milli() {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: fee below minimum")
	}
	return Result{Fee: resp.TxWithOutputs.Fee, SpendInputs: t.Transfer.Inputs, SealedTx: resp.TxWithOutputs.SealedTx}, nil
}

func dispatchDepositStake(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, enc enclave.Proxy, accounts AccountLookup) (Result, error) {
	dt := t.DepositStake
	prior, found, err := accounts.Get(dt.ToStakingAddress)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindStorage, err, "validate: account lookup")
	}
	var priorAcc *account.StakingAccount
	if found {
		if prior.IsJailed(info.BlockTime) {
			return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: deposit target is jailed")
		}
		priorAcc = prior
	}

	raw, err := t.Encode()
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindParse, err, "validate: encode deposit tx")
	}

	resp, err := enc.ValidateTx(enclave.ValidateTxRequest{Tx: raw, Info: enclave.TxInfo{ChainHexID: info.ChainHexID, BlockTime: info.BlockTime}, PriorAccount: priorAcc})
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindEnclaveRejected, err, "validate: enclave call failed")
	}
	if !resp.OK || resp.DepositStake == nil {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: deposit tx rejected by enclave")
	}

	minFee, err := localFee(np, len(raw))
	if err != nil {
		return Result{}, err
	}

	credit := resp.DepositStake.InputCoins.Sub(minFee)
	updated := priorAcc
	if updated == nil {
		updated = &account.StakingAccount{Address: dt.ToStakingAddress}
	} else {
		cp := *updated
		updated = &cp
	}
	newBonded, err := updated.Bonded.Add(credit)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: bonded overflow")
	}
	updated.Bonded = newBonded
	updated.Nonce++

	return Result{Fee: minFee, UpdatedAccount: updated, SpendInputs: dt.Inputs}, nil
}

func dispatchWithdrawUnbonded(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, enc enclave.Proxy, accounts AccountLookup) (Result, error) {
	wt := t.WithdrawUnbondedStake
	prior, found, err := accounts.Get(wt.FromStakingAddress)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindStorage, err, "validate: account lookup")
	}
	if !found {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: withdraw from unknown account")
	}
	if prior.IsJailed(info.BlockTime) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: account is jailed")
	}
	if prior.Nonce != wt.Nonce {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: nonce mismatch")
	}
	if info.BlockTime < prior.UnbondedFrom {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: unbonding period not elapsed")
	}

	raw, err := t.Encode()
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindParse, err, "validate: encode withdraw tx")
	}
	minFee, err := localFee(np, len(raw))
	if err != nil {
		return Result{}, err
	}

	var outputTotalMilli coin.Milli
	for _, o := range wt.Outputs {
		outputTotalMilli = outputTotalMilli.Add(o.Value.Milli())
	}
	outputTotal, err := coin.NewCoin(outputTotalMilli)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: output total overflow")
	}
	required, err := outputTotal.Add(minFee)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: required overflow")
	}
	if prior.Unbonded.LessThan(required) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: insufficient unbonded balance")
	}

	if err := tx.Verify(wt.Witness, mustSignBytes(t), wt.FromStakingAddress); err != nil {
		return Result{}, err
	}

	resp, err := enc.ValidateTx(enclave.ValidateTxRequest{Tx: raw, Info: enclave.TxInfo{ChainHexID: info.ChainHexID, BlockTime: info.BlockTime}, PriorAccount: prior})
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindEnclaveRejected, err, "validate: enclave call failed")
	}
	if !resp.OK {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: withdraw tx rejected by enclave")
	}

	cp := *prior
	cp.Unbonded = cp.Unbonded.Sub(required)
	cp.Nonce++

	var sealed []byte
	if resp.TxWithOutputs != nil {
		sealed = resp.TxWithOutputs.SealedTx
	}
	return Result{Fee: minFee, UpdatedAccount: &cp, SealedTx: sealed}, nil
}

func dispatchUnbondStake(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, accounts AccountLookup, encodedLen int) (Result, error) {
	ut := t.UnbondStake
	prior, found, err := accounts.Get(ut.StakingAddress)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindStorage, err, "validate: account lookup")
	}
	if !found {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: unbond from unknown account")
	}
	if prior.IsJailed(info.BlockTime) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: account is jailed")
	}
	if prior.Nonce != ut.Nonce {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: nonce mismatch")
	}

	fee, err := localFee(np, encodedLen)
	if err != nil {
		return Result{}, err
	}
	required, err := ut.Value.Add(fee)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: required overflow")
	}
	if prior.Bonded.LessThan(required) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: insufficient bonded balance")
	}

	if err := tx.Verify(ut.Witness, mustSignBytes(t), ut.StakingAddress); err != nil {
		return Result{}, err
	}

	cp := *prior
	cp.Bonded = cp.Bonded.Sub(required)
	newUnbonded, err := cp.Unbonded.Add(ut.Value)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, "validate: unbonded overflow")
	}
	cp.Unbonded = newUnbonded
	cp.UnbondedFrom = info.BlockTime + np.UnbondingPeriod
	cp.Nonce++

	return Result{Fee: fee, UpdatedAccount: &cp}, nil
}

func dispatchUnjail(t *tx.Tx, info ChainInfo, accounts AccountLookup, np *params.NetworkParameters, encodedLen int) (Result, error) {
	jt := t.Unjail
	prior, found, err := accounts.Get(jt.StakingAddress)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindStorage, err, "validate: account lookup")
	}
	if !found {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: unjail unknown account")
	}
	if !prior.IsJailed(info.BlockTime) && prior.JailedUntil == nil {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: account is not jailed")
	}
	if prior.JailedUntil != nil && info.BlockTime < *prior.JailedUntil {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: jail period has not elapsed")
	}
	if prior.Nonce != jt.Nonce {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: nonce mismatch")
	}

	if err := tx.Verify(jt.Witness, mustSignBytes(t), jt.StakingAddress); err != nil {
		return Result{}, err
	}

	fee, err := localFee(np, encodedLen)
	if err != nil {
		return Result{}, err
	}

	cp := *prior
	cp.JailedUntil = nil
	cp.Punishment = nil
	cp.Nonce++

	return Result{Fee: fee, UpdatedAccount: &cp}, nil
}

func dispatchNodeJoin(t *tx.Tx, info ChainInfo, np *params.NetworkParameters, accounts AccountLookup, encodedLen int) (Result, error) {
	nt := t.NodeJoin
	prior, found, err := accounts.Get(nt.StakingAddress)
	if err != nil {
		return Result{}, chainerrors.Wrap(chainerrors.KindStorage, err, "validate: account lookup")
	}
	if !found {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: node-join unknown account")
	}
	if prior.IsJailed(info.BlockTime) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: account is jailed")
	}
	if prior.Bonded.LessThan(np.RequiredStake) {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: insufficient bonded stake for council seat")
	}
	if prior.Nonce != nt.Nonce {
		return Result{}, chainerrors.New(chainerrors.KindInvalidInput, "validate: nonce mismatch")
	}

	if err := tx.Verify(nt.Witness, mustSignBytes(t), nt.StakingAddress); err != nil {
		return Result{}, err
	}

	fee, err := localFee(np, encodedLen)
	if err != nil {
		return Result{}, err
	}

	cp := *prior
	cp.CouncilNode = &account.CouncilNode{Name: nt.Name, SecurityContact: nt.SecurityContact, ConsensusPubkey: nt.ConsensusPubkey}
	cp.Nonce++

	return Result{Fee: fee, UpdatedAccount: &cp}, nil
}

func mustSignBytes(t *tx.Tx) []byte {
	sb, err := tx.SignBytes(t)
	if err != nil {
		logger.Crit("sign-bytes encoding failed for an already-decoded transaction", "err", err)
	}
	return sb
}
