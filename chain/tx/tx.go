// Package tx implements the wire transaction format of §6: a tagged union
// over TransferTx | DepositStakeTx | WithdrawUnbondedStakeTx |
// UnbondStakeTx | UnjailTx | NodeJoinTx, length-prefixed byte fields,
// little-endian integers. Fee is computed on the encoded size. Grounded on
// the teacher's tagged transaction-kind encoding
// (blockchain/types/tx_internal_data_*.go, one Go type per kind dispatched
// through a shared TxType tag).
package tx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/utxo"
)

func sha256Sum(b []byte) utxo.TxID { return sha256.Sum256(b) }

// Kind tags which transaction variant a wire payload encodes (§6).
type Kind uint8

const (
	KindTransfer Kind = iota
	KindDepositStake
	KindWithdrawUnbondedStake
	KindUnbondStake
	KindUnjail
	KindNodeJoin
)

// TransferTx spends UTXO inputs into new UTXO outputs (§3, §4.8).
type TransferTx struct {
	Inputs  []utxo.TxoPointer
	Outputs []utxo.TxOut
	Witness []Witness
}

// DepositStakeTx spends UTXO inputs into a bonded staking credit (§4.8).
type DepositStakeTx struct {
	ToStakingAddress account.Address
	Inputs           []utxo.TxoPointer
	Witness          []Witness
}

// WithdrawUnbondedStakeTx moves the unbonded portion of a staking account
// out to new UTXO outputs (§4.8).
type WithdrawUnbondedStakeTx struct {
	FromStakingAddress account.Address
	Nonce               uint64
	Outputs             []utxo.TxOut
	Witness             Witness
}

// UnbondStakeTx moves value from bonded to unbonded (§4.8).
type UnbondStakeTx struct {
	StakingAddress account.Address
	Nonce          uint64
	Value          coin.Coin
	Witness        Witness
}

// UnjailTx clears jailing once the jail period has elapsed (§4.8).
type UnjailTx struct {
	StakingAddress account.Address
	Nonce          uint64
	Witness        Witness
}

// NodeJoinTx binds a staking account to a validator identity (§4.8).
type NodeJoinTx struct {
	StakingAddress  account.Address
	Nonce           uint64
	Name            string
	SecurityContact string
	ConsensusPubkey []byte
	Witness         Witness
}

// Tx is the tagged-union envelope every consensus-delivered transaction is
// parsed into.
type Tx struct {
	Kind                    Kind
	Transfer                *TransferTx
	DepositStake            *DepositStakeTx
	WithdrawUnbondedStake   *WithdrawUnbondedStakeTx
	UnbondStake             *UnbondStakeTx
	Unjail                  *UnjailTx
	NodeJoin                *NodeJoinTx
}

func putUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func putUint64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func putBytes(w *bytes.Buffer, b []byte) {
	putUint32(w, uint32(len(b)))
	w.Write(b)
}

func putAddress(w *bytes.Buffer, a account.Address) { w.Write(a[:]) }

func putWitness(w *bytes.Buffer, wit Witness) {
	putBytes(w, wit.PublicKey)
	putBytes(w, wit.Signature)
}

type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var b [4]byte
	if _, err := r.r.Read(b[:]); err != nil {
		r.err = err
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := r.r.Read(b[:]); err != nil {
		r.err = err
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (r *reader) bytes() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.r.Read(b); err != nil {
			r.err = err
			return nil
		}
	}
	return b
}

func (r *reader) address() account.Address {
	var a account.Address
	if r.err != nil {
		return a
	}
	if _, err := r.r.Read(a[:]); err != nil {
		r.err = err
	}
	return a
}

func (r *reader) witness() Witness {
	return Witness{PublicKey: r.bytes(), Signature: r.bytes()}
}

// Encode produces the canonical little-endian, length-prefixed wire
// encoding of t (§6). Fee is computed over len(Encode(t)).
func (t *Tx) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(t.Kind))

	switch t.Kind {
	case KindTransfer:
		tt := t.Transfer
		putUint32(&buf, uint32(len(tt.Inputs)))
		for _, in := range tt.Inputs {
			buf.Write(in.TxID[:])
			var idx [2]byte
			binary.LittleEndian.PutUint16(idx[:], in.Index)
			buf.Write(idx[:])
		}
		putUint32(&buf, uint32(len(tt.Outputs)))
		for _, out := range tt.Outputs {
			putAddress(&buf, out.Address)
			putUint64(&buf, uint64(out.Value.Milli()))
		}
		putUint32(&buf, uint32(len(tt.Witness)))
		for _, w := range tt.Witness {
			putWitness(&buf, w)
		}
	case KindDepositStake:
		dt := t.DepositStake
		putAddress(&buf, dt.ToStakingAddress)
		putUint32(&buf, uint32(len(dt.Inputs)))
		for _, in := range dt.Inputs {
			buf.Write(in.TxID[:])
			var idx [2]byte
			binary.LittleEndian.PutUint16(idx[:], in.Index)
			buf.Write(idx[:])
		}
		putUint32(&buf, uint32(len(dt.Witness)))
		for _, w := range dt.Witness {
			putWitness(&buf, w)
		}
	case KindWithdrawUnbondedStake:
		wt := t.WithdrawUnbondedStake
		putAddress(&buf, wt.FromStakingAddress)
		putUint64(&buf, wt.Nonce)
		putUint32(&buf, uint32(len(wt.Outputs)))
		for _, out := range wt.Outputs {
			putAddress(&buf, out.Address)
			putUint64(&buf, uint64(out.Value.Milli()))
		}
		putWitness(&buf, wt.Witness)
	case KindUnbondStake:
		ut := t.UnbondStake
		putAddress(&buf, ut.StakingAddress)
		putUint64(&buf, ut.Nonce)
		putUint64(&buf, uint64(ut.Value.Milli()))
		putWitness(&buf, ut.Witness)
	case KindUnjail:
		jt := t.Unjail
		putAddress(&buf, jt.StakingAddress)
		putUint64(&buf, jt.Nonce)
		putWitness(&buf, jt.Witness)
	case KindNodeJoin:
		nt := t.NodeJoin
		putAddress(&buf, nt.StakingAddress)
		putUint64(&buf, nt.Nonce)
		putBytes(&buf, []byte(nt.Name))
		putBytes(&buf, []byte(nt.SecurityContact))
		putBytes(&buf, nt.ConsensusPubkey)
		putWitness(&buf, nt.Witness)
	default:
		return nil, fmt.Errorf("tx: unknown kind %d", t.Kind)
	}
	return buf.Bytes(), nil
}

// Decode parses a wire transaction (§6). A malformed payload yields an
// error, which chain/abci's CheckTx and DeliverTx return as a non-zero
// response code.
func Decode(raw []byte) (*Tx, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("tx: empty payload")
	}
	r := &reader{r: bytes.NewReader(raw[1:])}
	kind := Kind(raw[0])
	t := &Tx{Kind: kind}

	readCoin := func() coin.Coin {
		m := r.u64()
		c, _ := coin.NewCoin(coin.Milli(m))
		return c
	}

	switch kind {
	case KindTransfer:
		tt := &TransferTx{}
		nIn := r.u32()
		for i := uint32(0); i < nIn; i++ {
			var p utxo.TxoPointer
			if _, err := r.r.Read(p.TxID[:]); err != nil {
				r.err = err
			}
			var idx [2]byte
			if _, err := r.r.Read(idx[:]); err != nil {
				r.err = err
			}
			p.Index = binary.LittleEndian.Uint16(idx[:])
			tt.Inputs = append(tt.Inputs, p)
		}
		nOut := r.u32()
		for i := uint32(0); i < nOut; i++ {
			addr := r.address()
			val := readCoin()
			tt.Outputs = append(tt.Outputs, utxo.TxOut{Address: addr, Value: val})
		}
		nW := r.u32()
		for i := uint32(0); i < nW; i++ {
			tt.Witness = append(tt.Witness, r.witness())
		}
		t.Transfer = tt
	case KindDepositStake:
		dt := &DepositStakeTx{}
		dt.ToStakingAddress = r.address()
		nIn := r.u32()
		for i := uint32(0); i < nIn; i++ {
			var p utxo.TxoPointer
			if _, err := r.r.Read(p.TxID[:]); err != nil {
				r.err = err
			}
			var idx [2]byte
			if _, err := r.r.Read(idx[:]); err != nil {
				r.err = err
			}
			p.Index = binary.LittleEndian.Uint16(idx[:])
			dt.Inputs = append(dt.Inputs, p)
		}
		nW := r.u32()
		for i := uint32(0); i < nW; i++ {
			dt.Witness = append(dt.Witness, r.witness())
		}
		t.DepositStake = dt
	case KindWithdrawUnbondedStake:
		wt := &WithdrawUnbondedStakeTx{}
		wt.FromStakingAddress = r.address()
		wt.Nonce = r.u64()
		nOut := r.u32()
		for i := uint32(0); i < nOut; i++ {
			addr := r.address()
			val := readCoin()
			wt.Outputs = append(wt.Outputs, utxo.TxOut{Address: addr, Value: val})
		}
		wt.Witness = r.witness()
		t.WithdrawUnbondedStake = wt
	case KindUnbondStake:
		ut := &UnbondStakeTx{}
		ut.StakingAddress = r.address()
		ut.Nonce = r.u64()
		ut.Value = readCoin()
		ut.Witness = r.witness()
		t.UnbondStake = ut
	case KindUnjail:
		jt := &UnjailTx{}
		jt.StakingAddress = r.address()
		jt.Nonce = r.u64()
		jt.Witness = r.witness()
		t.Unjail = jt
	case KindNodeJoin:
		nt := &NodeJoinTx{}
		nt.StakingAddress = r.address()
		nt.Nonce = r.u64()
		nt.Name = string(r.bytes())
		nt.SecurityContact = string(r.bytes())
		nt.ConsensusPubkey = r.bytes()
		nt.Witness = r.witness()
		t.NodeJoin = nt
	default:
		return nil, fmt.Errorf("tx: unknown kind %d", kind)
	}

	if r.err != nil {
		return nil, fmt.Errorf("tx: decode: %w", r.err)
	}
	return t, nil
}

// SignBytes returns the canonical preimage a witness signs: every
// substantive field of the transaction except the witness itself, so
// verification never has to "zero out" an already-encoded signature.
func SignBytes(t *Tx) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(t.Kind))

	switch t.Kind {
	case KindTransfer:
		tt := t.Transfer
		putUint32(&buf, uint32(len(tt.Inputs)))
		for _, in := range tt.Inputs {
			buf.Write(in.TxID[:])
			var idx [2]byte
			binary.LittleEndian.PutUint16(idx[:], in.Index)
			buf.Write(idx[:])
		}
		putUint32(&buf, uint32(len(tt.Outputs)))
		for _, out := range tt.Outputs {
			putAddress(&buf, out.Address)
			putUint64(&buf, uint64(out.Value.Milli()))
		}
	case KindDepositStake:
		dt := t.DepositStake
		putAddress(&buf, dt.ToStakingAddress)
		putUint32(&buf, uint32(len(dt.Inputs)))
		for _, in := range dt.Inputs {
			buf.Write(in.TxID[:])
			var idx [2]byte
			binary.LittleEndian.PutUint16(idx[:], in.Index)
			buf.Write(idx[:])
		}
	case KindWithdrawUnbondedStake:
		wt := t.WithdrawUnbondedStake
		putAddress(&buf, wt.FromStakingAddress)
		putUint64(&buf, wt.Nonce)
		putUint32(&buf, uint32(len(wt.Outputs)))
		for _, out := range wt.Outputs {
			putAddress(&buf, out.Address)
			putUint64(&buf, uint64(out.Value.Milli()))
		}
	case KindUnbondStake:
		ut := t.UnbondStake
		putAddress(&buf, ut.StakingAddress)
		putUint64(&buf, ut.Nonce)
		putUint64(&buf, uint64(ut.Value.Milli()))
	case KindUnjail:
		jt := t.Unjail
		putAddress(&buf, jt.StakingAddress)
		putUint64(&buf, jt.Nonce)
	case KindNodeJoin:
		nt := t.NodeJoin
		putAddress(&buf, nt.StakingAddress)
		putUint64(&buf, nt.Nonce)
		putBytes(&buf, []byte(nt.Name))
		putBytes(&buf, []byte(nt.SecurityContact))
		putBytes(&buf, nt.ConsensusPubkey)
	default:
		return nil, fmt.Errorf("tx: unknown kind %d", t.Kind)
	}
	return buf.Bytes(), nil
}

// ID returns the transaction id: the hash of its signing bytes, used as
// the UTXO spend-map key, as a leaf of the block's txs Merkle tree and as
// the valid_txs event txid (§3, §4.9).
func ID(t *Tx) (utxo.TxID, error) {
	sb, err := SignBytes(t)
	if err != nil {
		return utxo.TxID{}, err
	}
	return sha256Sum(sb), nil
}
