// Package abci implements the consensus-facing state machine: InitChain,
// Info, Query, CheckTx, BeginBlock, DeliverTx, EndBlock and Commit, wired
// against the domain packages (chain/account, chain/trie, chain/utxo,
// chain/liveness, chain/slashing, chain/validator, chain/tx/validate) and
// the column-family key-value store (storage/database). Grounded on the
// teacher's block-processing pipeline (blockchain/blockchain.go's
// InsertChain / state-transition / Finalize split), generalized from an
// account-balance EVM state transition to this chain's staking/UTXO model.
package abci

import (
	"encoding/binary"
	"encoding/gob"
	"bytes"
	"fmt"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	chainerrors "github.com/leejw51/mychain/chain/errors"
	"github.com/leejw51/mychain/chain/enclave"
	"github.com/leejw51/mychain/chain/liveness"
	chainlog "github.com/leejw51/mychain/chain/log"
	"github.com/leejw51/mychain/chain/merkle"
	"github.com/leejw51/mychain/chain/metrics"
	"github.com/leejw51/mychain/chain/params"
	"github.com/leejw51/mychain/chain/slashing"
	"github.com/leejw51/mychain/chain/trie"
	"github.com/leejw51/mychain/chain/tx"
	"github.com/leejw51/mychain/chain/tx/validate"
	"github.com/leejw51/mychain/chain/utxo"
	"github.com/leejw51/mychain/chain/validator"
	"github.com/leejw51/mychain/storage/database"
)

var logger = chainlog.NewModuleLogger(chainlog.ABCI)

// keys within the NODE_INFO / EXTRA column families (§6).
var (
	keyLastHeight     = []byte("last_height")
	keyLastAppHash    = []byte("last_app_hash")
	keyAccountRoot    = []byte("account_root")
	keyChainHexID     = []byte("chain_hex_id")
	keyNetworkParams  = []byte("network_params")
	keyRewardsPool    = []byte("rewards_pool")
	keyLivenessPrefix = []byte("liveness/")
)

// Attribute is one key/value pair of an emitted event (§4.9). Keys are
// plain ASCII so they reproduce identically across the enclave boundary.
type Attribute struct {
	Key   string
	Value string
}

// Event is one state-machine event emitted from BeginBlock/DeliverTx/EndBlock.
type Event struct {
	Type       string
	Attributes []Attribute
}

func attr(k, v string) Attribute { return Attribute{Key: k, Value: v} }

// ResponseInitChain reports the genesis validator set.
type ResponseInitChain struct {
	Validators []validator.Update
}

// ResponseInfo answers the handshake query issued at node startup.
type ResponseInfo struct {
	LastBlockHeight  int64
	LastBlockAppHash []byte
}

// ResponseQuery answers an account/trie lookup (§4.9).
type ResponseQuery struct {
	Code  uint32
	Value []byte
	Log   string
}

// ResponseCheckTx is the mempool-admission verdict (§4.9).
type ResponseCheckTx struct {
	Code uint32
	Log  string
}

// ResponseDeliverTx is the per-transaction block-execution verdict (§4.9).
type ResponseDeliverTx struct {
	Code   uint32
	Log    string
	Events []Event
}

// ResponseEndBlock carries the validator-set diff accumulated since
// BeginBlock and the block_filter/rewards_distribution events (§4.9);
// jailing and slashing events are reported by BeginBlock.
type ResponseEndBlock struct {
	ValidatorUpdates []validator.Update
	Events           []Event
}

// ResponseCommit carries the new application hash (§4.2, §4.9).
type ResponseCommit struct {
	Data []byte
}

// SignedValidator reports whether a council node's consensus pubkey signed
// the previous block's commit, the input BeginBlock needs to drive the
// liveness tracker (§4.5).
type SignedValidator struct {
	Address account.Address
	Signed  bool
}

// Evidence reports a validator the consensus engine observed committing a
// byzantine fault (e.g. double-signing) at the current height, the other
// half of §4.9's accounts_to_punish set alongside non-live validators.
type Evidence struct {
	Address account.Address
}

// ResponseBeginBlock carries the events raised while opening the block:
// the immediate jailing of any newly non-live or byzantine-faulted
// validator, and the activation of any slash schedule entries whose wait
// period has elapsed (§4.9).
type ResponseBeginBlock struct {
	Events []Event
}

// Handler is the top-level state machine. One Handler instance serves an
// entire chain lifetime; construction wires it against a DBManager and an
// enclave.Proxy.
type Handler struct {
	db       database.DBManager
	accounts *trie.Trie
	spent    *utxo.SpendMap
	enc      enclave.Proxy
	np       *params.NetworkParameters
	council  *validator.Set

	accountRoot trie.Root
	chainHexID  string
	height      int64
	appHash     []byte
	rewardsPool coin.Coin

	liveTrackers map[account.Address]*liveness.Tracker
	slashes      *slashing.Schedule

	block *blockContext
}

// blockContext is the mutable scratch state accumulated between BeginBlock
// and Commit (§9's "block-scoped context object" design note): pending
// account mutations layered over the last committed trie root, pending
// UTXO spends, delivered tx ids for the block's Merkle root, and the
// events/validator-updates collected so far.
type blockContext struct {
	height    int64
	blockTime int64

	accounts map[account.Address]*account.StakingAccount
	spent    []utxo.TxoPointer
	txIDs    [][]byte

	validatorUpdates []validator.Update
	events           []Event

	startingRewardsPool coin.Coin
}

// New constructs a Handler against db and enc, with no chain state loaded
// yet; call Info or InitChain next depending on whether db already holds a
// committed chain.
func New(db database.DBManager, enc enclave.Proxy) *Handler {
	return &Handler{
		db:           db,
		accounts:     trie.New(db),
		spent:        utxo.New(db),
		enc:          enc,
		council:      validator.NewSet(),
		liveTrackers: make(map[account.Address]*liveness.Tracker),
		slashes:      slashing.New(),
	}
}

// GenesisAccount seeds one staking account at InitChain.
type GenesisAccount struct {
	Account     account.StakingAccount
	CouncilNode *account.CouncilNode
}

// ConsensusInfo carries the consensus engine's own evidence-expiry
// parameters, checked against NetworkParameters at InitChain (§9 open
// question iii).
type ConsensusInfo struct {
	MaxAgeDuration  int64
	MaxAgeNumBlocks uint64
}

// InitChain loads genesis accounts and network parameters into a fresh
// trie, persists them, and reports the genesis validator set (§4.9). If
// consensus.MaxAgeDuration is set, it must agree with
// np.UnbondingMaxAge/np.UnbondingMaxAgeBlocks — a mismatch there means the
// unbonding period could expire before the consensus engine's own evidence
// window, silently breaking slashing for old equivocations, so it is a
// fatal misconfiguration rather than a recoverable one.
func (h *Handler) InitChain(chainHexID string, np *params.NetworkParameters, genesis []GenesisAccount, consensus ConsensusInfo) (ResponseInitChain, error) {
	if consensus.MaxAgeDuration != 0 && (consensus.MaxAgeDuration != np.UnbondingMaxAge || consensus.MaxAgeNumBlocks != np.UnbondingMaxAgeBlocks) {
		return ResponseInitChain{}, chainerrors.New(chainerrors.KindFatal, "abci: consensus max-age params do not match network parameters' unbonding max age")
	}

	h.np = np
	h.chainHexID = chainHexID

	root := trie.EmptyRoot()
	var updates []validator.Update
	for _, g := range genesis {
		acc := g.Account
		acc.CouncilNode = g.CouncilNode
		encoded, err := acc.Encode()
		if err != nil {
			return ResponseInitChain{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: encode genesis account")
		}
		key := account.TrieKey(acc.Address)
		root, err = h.accounts.InsertOne(root, key, encoded)
		if err != nil {
			return ResponseInitChain{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: insert genesis account")
		}
		if g.CouncilNode != nil {
			h.council.Add(acc.Address, g.CouncilNode)
			h.liveTrackers[acc.Address] = liveness.New(np.Jailing.BlockSigningWindow)
			power := int64(acc.Bonded.Milli().ToIntegralTrunc())
			updates = append(updates, validator.Update{ConsensusPubkey: g.CouncilNode.ConsensusPubkey, Power: power})
		}
	}

	h.accountRoot = root
	h.height = 0
	h.rewardsPool = coin.Zero

	if err := h.persistNetworkParams(np); err != nil {
		return ResponseInitChain{}, err
	}
	if err := h.db.Put(database.NodeInfoDB, keyChainHexID, []byte(chainHexID)); err != nil {
		return ResponseInitChain{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist chain id")
	}
	if err := h.db.Put(database.NodeInfoDB, keyAccountRoot, root[:]); err != nil {
		return ResponseInitChain{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist account root")
	}

	if err := h.checkChain(chainHexID, nil); err != nil {
		return ResponseInitChain{}, err
	}

	logger.Info("chain initialized", "chainHexID", chainHexID, "validators", len(updates))
	return ResponseInitChain{Validators: updates}, nil
}

// checkChain issues CheckChain against the enclave and fails fatally if it
// disagrees with lastAppHash (§4.7: "must issue CheckChain and halt if the
// enclave's view of last_app_hash disagrees with persisted storage").
func (h *Handler) checkChain(chainHexID string, lastAppHash []byte) error {
	resp, err := h.enc.CheckChain(enclave.CheckChainRequest{ChainHexID: chainHexID, LastAppHash: lastAppHash})
	if err != nil {
		return chainerrors.Wrap(chainerrors.KindEnclaveRejected, err, "abci: enclave checkchain")
	}
	if !resp.OK || !bytes.Equal(resp.AppHash, lastAppHash) {
		return chainerrors.New(chainerrors.KindFatal, "abci: enclave app hash disagreement at startup")
	}
	return nil
}

// CheckChain re-runs the startup sanity check against the chain id and
// last app hash already loaded by Info, for the resume-from-storage path
// (§4.7). Callers must invoke this once after Info on every startup that
// does not also call InitChain, since InitChain performs its own check.
func (h *Handler) CheckChain(lastAppHash []byte) error {
	return h.checkChain(h.chainHexID, lastAppHash)
}

func (h *Handler) persistNetworkParams(np *params.NetworkParameters) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(np); err != nil {
		return chainerrors.Wrap(chainerrors.KindStorage, err, "abci: encode network params")
	}
	if err := h.db.Put(database.ExtraDB, keyNetworkParams, buf.Bytes()); err != nil {
		return chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist network params")
	}
	return nil
}

// Info answers the startup handshake with the last committed height and
// app hash, loading committed state from db if this Handler was just
// constructed against an existing chain (§4.9, §9 crash-recovery note).
func (h *Handler) Info() (ResponseInfo, error) {
	raw, err := h.db.Get(database.NodeInfoDB, keyLastHeight)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read last height")
	}
	if raw == nil {
		return ResponseInfo{LastBlockHeight: 0, LastBlockAppHash: nil}, nil
	}
	h.height = int64(binary.BigEndian.Uint64(raw))

	appHash, err := h.db.Get(database.NodeInfoDB, keyLastAppHash)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read last app hash")
	}
	h.appHash = appHash

	rootRaw, err := h.db.Get(database.NodeInfoDB, keyAccountRoot)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read account root")
	}
	if rootRaw != nil {
		copy(h.accountRoot[:], rootRaw)
	}

	chainIDRaw, err := h.db.Get(database.NodeInfoDB, keyChainHexID)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read chain id")
	}
	h.chainHexID = string(chainIDRaw)

	npRaw, err := h.db.Get(database.ExtraDB, keyNetworkParams)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read network params")
	}
	if npRaw != nil {
		var np params.NetworkParameters
		if err := gob.NewDecoder(bytes.NewReader(npRaw)).Decode(&np); err != nil {
			return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: decode network params")
		}
		h.np = &np
	}

	poolRaw, err := h.db.Get(database.ExtraDB, keyRewardsPool)
	if err != nil {
		return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: read rewards pool")
	}
	if poolRaw != nil {
		m := coin.Milli(binary.BigEndian.Uint64(poolRaw))
		pool, err := coin.NewCoin(m)
		if err != nil {
			return ResponseInfo{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: decode rewards pool")
		}
		h.rewardsPool = pool
	}

	return ResponseInfo{LastBlockHeight: h.height, LastBlockAppHash: h.appHash}, nil
}

// Query answers a staking-account lookup against the last committed root,
// or an explicit historical root when one is supplied (§4.3's "intermediate
// roots remain queryable").
func (h *Handler) Query(addr account.Address, atRoot *trie.Root) (ResponseQuery, error) {
	root := h.accountRoot
	if atRoot != nil {
		root = *atRoot
	}
	value, found, err := h.accounts.Get(root, account.TrieKey(addr))
	if err != nil {
		return ResponseQuery{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: query account")
	}
	if !found {
		return ResponseQuery{Code: 1, Log: "account not found"}, nil
	}
	return ResponseQuery{Value: value}, nil
}

// committedAccounts reads straight from the last committed trie root, the
// view CheckTx validates against (§4.9: CheckTx never sees pending state).
type committedAccounts struct {
	h *Handler
}

func (c committedAccounts) Get(addr account.Address) (*account.StakingAccount, bool, error) {
	raw, found, err := c.h.accounts.Get(c.h.accountRoot, account.TrieKey(addr))
	if err != nil || !found {
		return nil, found, err
	}
	a, err := account.Decode(raw)
	return a, true, err
}

// layeredAccounts lets DeliverTx see its own block's pending writes before
// falling back to the committed trie, so two transactions in the same
// block can chain off each other's effects (§4.9).
type layeredAccounts struct {
	h       *Handler
	pending map[account.Address]*account.StakingAccount
}

func (l layeredAccounts) Get(addr account.Address) (*account.StakingAccount, bool, error) {
	if a, ok := l.pending[addr]; ok {
		return a, true, nil
	}
	return committedAccounts{h: l.h}.Get(addr)
}

// CheckTx runs the §4.8 validator against committed state only, for
// mempool admission (§4.9).
func (h *Handler) CheckTx(raw []byte, blockTime int64) ResponseCheckTx {
	t, err := tx.Decode(raw)
	if err != nil {
		return ResponseCheckTx{Code: chainerrors.Code(err), Log: err.Error()}
	}
	info := validate.ChainInfo{ChainHexID: h.chainHexID, BlockTime: blockTime}
	_, err = validate.Dispatch(t, info, h.np, h.enc, committedAccounts{h: h}, len(raw))
	if err != nil {
		return ResponseCheckTx{Code: chainerrors.Code(err), Log: err.Error()}
	}
	return ResponseCheckTx{}
}

// loadAccount reads addr's account from the last committed trie root,
// independent of any block-pending write (used for accounts not yet
// touched this block).
func (h *Handler) loadAccount(addr account.Address) (*account.StakingAccount, error) {
	raw, found, err := h.accounts.Get(h.accountRoot, account.TrieKey(addr))
	if err != nil {
		return nil, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: load account")
	}
	if !found {
		return nil, nil
	}
	a, err := account.Decode(raw)
	if err != nil {
		return nil, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: decode account")
	}
	return a, nil
}

// totalVotingPower sums the voting power of every current council node,
// for the §4.9 slashing_proportion denominator.
func (h *Handler) totalVotingPower() (int64, error) {
	var total int64
	for addr := range h.council.All() {
		acc, err := h.loadAccount(addr)
		if err != nil {
			return 0, err
		}
		if acc == nil {
			continue
		}
		total += validator.VotingPower(acc.Bonded)
	}
	return total, nil
}

// BeginBlock opens a fresh block-scoped context (§9's design note), ahead
// of a run of DeliverTx calls: it advances every registered validator's
// liveness tracker from the previous block's commit signatures (§4.5),
// collects accounts_to_punish (byzantine evidence ∪ non-live validators),
// jails them immediately, and activates any slash schedule entries whose
// wait period has elapsed (§4.9 — run here, not in EndBlock, so a
// validator jailed for this block's fault has its own transactions
// rejected during this same block's DeliverTx calls).
func (h *Handler) BeginBlock(height int64, blockTime int64, signed []SignedValidator, evidence []Evidence) (ResponseBeginBlock, error) {
	h.block = &blockContext{
		height:              height,
		blockTime:           blockTime,
		accounts:            make(map[account.Address]*account.StakingAccount),
		startingRewardsPool: h.rewardsPool,
	}
	for _, sv := range signed {
		t, ok := h.liveTrackers[sv.Address]
		if !ok {
			t = liveness.New(h.np.Jailing.BlockSigningWindow)
			h.liveTrackers[sv.Address] = t
		}
		t.Update(uint64(height), sv.Signed)
	}

	var events []Event

	kindByAddr := make(map[account.Address]account.PunishmentKind)
	for _, ev := range evidence {
		kindByAddr[ev.Address] = account.PunishmentByzantineFault
	}
	for addr, tracker := range h.liveTrackers {
		if _, ok := kindByAddr[addr]; ok {
			continue
		}
		if !tracker.IsLive(h.np.Jailing.MissedBlockThreshold) {
			kindByAddr[addr] = account.PunishmentNonLive
		}
	}

	loaded := make(map[account.Address]*account.StakingAccount, len(kindByAddr))
	var sumOffenderPower int64
	for addr := range kindByAddr {
		acc, err := h.loadAccount(addr)
		if err != nil {
			return ResponseBeginBlock{}, err
		}
		loaded[addr] = acc
		if acc != nil {
			sumOffenderPower += validator.VotingPower(acc.Bonded)
		}
	}
	totalPower, err := h.totalVotingPower()
	if err != nil {
		return ResponseBeginBlock{}, err
	}
	proportion := slashing.Proportion(sumOffenderPower, totalPower)

	for addr, kind := range kindByAddr {
		acc := loaded[addr]
		if acc == nil {
			continue
		}
		basePercent := h.np.Slashing.LivenessPercent
		if kind == account.PunishmentByzantineFault {
			basePercent = h.np.Slashing.ByzantinePercent
		}
		h.slashes.Merge(addr, basePercent.Mul(proportion), kind, blockTime, h.np.Slashing.SlashWaitPeriod)

		wasValidator := acc.CouncilNode != nil
		var pubkey []byte
		if wasValidator {
			pubkey = acc.CouncilNode.ConsensusPubkey
		}
		slashing.Jail(acc, kind, blockTime, h.np.Jailing.JailDuration)
		h.block.accounts[addr] = acc
		if wasValidator {
			h.block.validatorUpdates = append(h.block.validatorUpdates, validator.Update{ConsensusPubkey: pubkey, Power: 0})
		}
		events = append(events, Event{Type: "jail_validators", Attributes: []Attribute{
			attr("account", fmt.Sprintf("%x", addr)),
		}})
	}

	for _, addr := range h.slashes.DueAt(blockTime) {
		acc, ok := h.block.accounts[addr]
		if !ok {
			acc, err = h.loadAccount(addr)
			if err != nil {
				return ResponseBeginBlock{}, err
			}
			if acc == nil {
				h.slashes.Clear(addr)
				continue
			}
		}
		slashed, err := slashing.Activate(h.slashes, acc, blockTime, h.np.Jailing.JailDuration)
		if err != nil {
			return ResponseBeginBlock{}, chainerrors.Wrap(chainerrors.KindFatal, err, "abci: slash activation overflow")
		}
		h.block.accounts[addr] = acc
		pool, addErr := h.rewardsPool.Add(slashed)
		if addErr == nil {
			h.rewardsPool = pool
		}
		metrics.SlashCount.Inc()
		events = append(events, Event{Type: "slash_validators", Attributes: []Attribute{
			attr("account", fmt.Sprintf("%x", addr)),
		}})
	}

	h.block.events = append(h.block.events, events...)
	return ResponseBeginBlock{Events: events}, nil
}

// DeliverTx decodes and dispatches one transaction against the block's
// pending view, folding its effect into the block context (§4.8, §4.9).
func (h *Handler) DeliverTx(raw []byte) ResponseDeliverTx {
	t, err := tx.Decode(raw)
	if err != nil {
		return ResponseDeliverTx{Code: chainerrors.Code(err), Log: err.Error()}
	}

	info := validate.ChainInfo{ChainHexID: h.chainHexID, BlockTime: h.block.blockTime}
	accView := layeredAccounts{h: h, pending: h.block.accounts}
	result, err := validate.Dispatch(t, info, h.np, h.enc, accView, len(raw))
	if err != nil {
		return ResponseDeliverTx{Code: chainerrors.Code(err), Log: err.Error()}
	}

	txid, err := tx.ID(t)
	if err != nil {
		return ResponseDeliverTx{Code: chainerrors.Code(err), Log: err.Error()}
	}

	if result.UpdatedAccount != nil {
		before, hadBefore, _ := accView.Get(result.UpdatedAccount.Address)
		h.block.accounts[result.UpdatedAccount.Address] = result.UpdatedAccount
		if hadBefore && h.council != nil {
			h.applyVotingPowerChange(before, result.UpdatedAccount)
		} else if !hadBefore {
			h.applyVotingPowerChange(&account.StakingAccount{Address: result.UpdatedAccount.Address}, result.UpdatedAccount)
		}
		if result.UpdatedAccount.CouncilNode != nil {
			h.council.Add(result.UpdatedAccount.Address, result.UpdatedAccount.CouncilNode)
			if _, ok := h.liveTrackers[result.UpdatedAccount.Address]; !ok {
				h.liveTrackers[result.UpdatedAccount.Address] = liveness.New(h.np.Jailing.BlockSigningWindow)
			}
		}
	}
	h.block.spent = append(h.block.spent, result.SpendInputs...)
	h.block.txIDs = append(h.block.txIDs, txid[:])

	newPool, addErr := h.rewardsPool.Add(result.Fee)
	if addErr == nil {
		h.rewardsPool = newPool
	}

	attrs := []Attribute{
		attr("fee", result.Fee.String()),
		attr("txid", fmt.Sprintf("%x", txid)),
	}
	if result.UpdatedAccount != nil {
		attrs = append(attrs, attr("account", fmt.Sprintf("%x", result.UpdatedAccount.Address)))
	}
	h.block.events = append(h.block.events, Event{Type: "valid_txs", Attributes: attrs})

	return ResponseDeliverTx{Events: []Event{h.block.events[len(h.block.events)-1]}}
}

func (h *Handler) applyVotingPowerChange(before, after *account.StakingAccount) {
	if after.CouncilNode == nil && before.CouncilNode == nil {
		return
	}
	pubkey := after.CouncilNode.ConsensusPubkey
	if pubkey == nil && before.CouncilNode != nil {
		pubkey = before.CouncilNode.ConsensusPubkey
	}
	jailed := after.IsJailed(h.block.blockTime)
	update, changed := validator.Recompute(h.np, before.Bonded, after.Bonded, jailed, pubkey)
	if changed {
		h.block.validatorUpdates = append(h.block.validatorUpdates, update)
	}
}

// EndBlock produces the validator-set diff accumulated since BeginBlock,
// forwards to the enclave's own end-of-block filter, and reports the
// rewards pool's movement this block (§4.9). The punishment pipeline
// (jailing, slash activation) already ran in BeginBlock, ahead of
// DeliverTx.
func (h *Handler) EndBlock() (ResponseEndBlock, error) {
	var events []Event

	resp, err := h.enc.EndBlock(enclave.EndBlockRequest{Height: h.block.height})
	if err != nil {
		return ResponseEndBlock{}, chainerrors.Wrap(chainerrors.KindEnclaveRejected, err, "abci: enclave end-block")
	}
	if resp.BlockFilter != nil {
		events = append(events, Event{Type: "block_filter", Attributes: []Attribute{
			attr("ethbloom", fmt.Sprintf("%x", resp.BlockFilter)),
		}})
	}

	minted := h.rewardsPool.Sub(h.block.startingRewardsPool)
	if !minted.IsZero() {
		events = append(events, Event{Type: "rewards_distribution", Attributes: []Attribute{
			attr("dist", h.rewardsPool.String()),
			attr("minted", minted.String()),
		}})
	}

	h.block.events = append(h.block.events, events...)
	return ResponseEndBlock{ValidatorUpdates: h.block.validatorUpdates, Events: events}, nil
}

// Commit persists the block's pending account writes, UTXO spends, and
// node metadata, and returns the new application hash (§4.2, §4.9).
func (h *Handler) Commit() (ResponseCommit, error) {
	b := h.block
	if b == nil {
		return ResponseCommit{}, chainerrors.New(chainerrors.KindFatal, "abci: commit without an open block")
	}

	root := h.accountRoot
	for addr, acc := range b.accounts {
		encoded, err := acc.Encode()
		if err != nil {
			return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: encode account")
		}
		root, err = h.accounts.InsertOne(root, account.TrieKey(addr), encoded)
		if err != nil {
			return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: insert account")
		}
	}
	h.accountRoot = root

	spendBatch := h.db.NewBatch(database.TxMetaDB)
	for _, p := range b.spent {
		if err := h.spent.MarkSpent(spendBatch, p.TxID, p.Index, int(p.Index)+1); err != nil {
			return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: mark spent")
		}
	}
	if err := spendBatch.Write(); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: flush spend batch")
	}

	txsTree := merkle.New(b.txIDs)
	txsRoot := txsTree.Root()
	accountRootHash := merkle.Hash(root)
	rewardsPoolHash := merkle.HashBytes([]byte(h.rewardsPool.String()))

	var npBuf bytes.Buffer
	if err := gob.NewEncoder(&npBuf).Encode(h.np); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: encode network params for hashing")
	}
	networkParamsHash := merkle.HashBytes(npBuf.Bytes())

	appHash := merkle.AppHash(txsRoot, accountRootHash, rewardsPoolHash, networkParamsHash)
	h.appHash = appHash[:]
	h.height = b.height

	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], uint64(h.height))
	if err := h.db.Put(database.NodeInfoDB, keyLastHeight, heightBuf[:]); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist height")
	}
	if err := h.db.Put(database.NodeInfoDB, keyLastAppHash, h.appHash); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist app hash")
	}
	if err := h.db.Put(database.NodeInfoDB, keyAccountRoot, root[:]); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist account root")
	}
	var poolBuf [8]byte
	binary.BigEndian.PutUint64(poolBuf[:], uint64(h.rewardsPool.Milli()))
	if err := h.db.Put(database.ExtraDB, keyRewardsPool, poolBuf[:]); err != nil {
		return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist rewards pool")
	}
	for addr, tracker := range h.liveTrackers {
		if err := h.db.Put(database.ExtraDB, livenessKey(addr), tracker.Encode()); err != nil {
			return ResponseCommit{}, chainerrors.Wrap(chainerrors.KindStorage, err, "abci: persist liveness tracker")
		}
	}

	h.block = nil
	metrics.BlockHeight.Set(float64(h.height))
	metrics.ValidatorCount.Set(float64(len(h.council.All())))
	logger.Info("block committed", "height", h.height, "appHash", fmt.Sprintf("%x", h.appHash))
	return ResponseCommit{Data: h.appHash}, nil
}

func livenessKey(addr account.Address) []byte {
	return append(append([]byte{}, keyLivenessPrefix...), addr[:]...)
}
