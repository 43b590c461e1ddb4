// Copyright 2025 Certen Protocol

// Package state tracks account balances, chain history, and pending job
// and solution records as of the current chain tip.
package state

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// AccountState is one address's balance and activity record.
type AccountState struct {
	Balance      types.Amount
	Nonce        uint64
	Staked       types.Amount
	TotalRewards types.Amount
	TotalSpent   types.Amount
	TotalEarned  types.Amount
}

// NewAccountState creates an account with an initial balance and zeroed
// activity counters.
func NewAccountState(balance types.Amount) AccountState {
	return AccountState{Balance: balance}
}

// AvailableBalance is the balance not currently staked.
func (a AccountState) AvailableBalance() types.Amount {
	return a.Balance.SaturatingSub(a.Staked)
}

// Credit adds amount to the account's balance, saturating at MaxSupply.
func (a *AccountState) Credit(amount types.Amount) {
	a.Balance = a.Balance.SaturatingAdd(amount)
}

// InsufficientBalanceError reports a debit that exceeds available balance.
type InsufficientBalanceError struct {
	Have types.Amount
	Need types.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("state: insufficient balance: have %s, need %s", e.Have, e.Need)
}

// Debit removes amount from the account's available balance, or returns
// an InsufficientBalanceError if the account cannot cover it.
func (a *AccountState) Debit(amount types.Amount) error {
	if a.AvailableBalance().LessThan(amount) {
		return &InsufficientBalanceError{Have: a.AvailableBalance(), Need: amount}
	}
	a.Balance = a.Balance.SaturatingSub(amount)
	return nil
}

// Sentinel and structural errors returned by ChainState operations.
var (
	// ErrInvalidParent is returned when a block's parent hash does not
	// match the current tip.
	ErrInvalidParent = newStateError("invalid parent block")
	// ErrBlockNotFound is returned by lookups on an unknown block.
	ErrBlockNotFound = newStateError("block not found")
	// ErrAccountNotFound is returned by lookups on an unknown account.
	ErrAccountNotFound = newStateError("account not found")
)

type stateError struct{ msg string }

func newStateError(msg string) error { return &stateError{msg: msg} }
func (e *stateError) Error() string  { return "state: " + e.msg }

// InvalidHeightError reports a block applied out of sequence.
type InvalidHeightError struct {
	Expected uint64
	Got      uint64
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("state: invalid height: expected %d, got %d", e.Expected, e.Got)
}

// ChainState is an in-memory snapshot of chain history and account
// balances as of the current tip. All methods are safe for concurrent
// use.
type ChainState struct {
	mu sync.RWMutex

	accounts     map[crypto.Address]*AccountState
	blocks       map[crypto.Hash]*types.Block
	heightIndex  map[uint64]crypto.Hash
	tip          *crypto.Hash
	height       uint64
	jobs         map[types.Id]*types.JobPacket
	solutions    map[types.Id]*types.SolutionCandidate
}

// New creates an empty chain state.
func New() *ChainState {
	return &ChainState{
		accounts:    make(map[crypto.Address]*AccountState),
		blocks:      make(map[crypto.Hash]*types.Block),
		heightIndex: make(map[uint64]crypto.Hash),
		jobs:        make(map[types.Id]*types.JobPacket),
		solutions:   make(map[types.Id]*types.SolutionCandidate),
	}
}

func (s *ChainState) getOrCreateAccountLocked(addr crypto.Address) *AccountState {
	acct, ok := s.accounts[addr]
	if !ok {
		acct = &AccountState{}
		s.accounts[addr] = acct
	}
	return acct
}

// GetOrCreateAccount returns a pointer to addr's account state, creating a
// zeroed record if one does not exist.
func (s *ChainState) GetOrCreateAccount(addr crypto.Address) *AccountState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateAccountLocked(addr)
}

// GetAccount returns a copy of addr's account state, if known.
func (s *ChainState) GetAccount(addr crypto.Address) (AccountState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return AccountState{}, false
	}
	return *acct, true
}

// BalanceOf returns addr's balance, or zero if the account is unknown.
func (s *ChainState) BalanceOf(addr crypto.Address) types.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return types.Zero
	}
	return acct.Balance
}

// Transfer debits amount from from's available balance and credits it to
// to, creating either account if it does not yet exist.
func (s *ChainState) Transfer(from, to crypto.Address, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.getOrCreateAccountLocked(from).Debit(amount); err != nil {
		return err
	}
	s.getOrCreateAccountLocked(to).Credit(amount)
	return nil
}

// ApplyBlock appends block to the chain, requiring it to extend the
// current tip (or, for the first block, to be height 0).
func (s *ChainState) ApplyBlock(block *types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tip != nil {
		if block.Header.ParentHash != *s.tip {
			return ErrInvalidParent
		}
		if block.Header.Height != s.height+1 {
			return &InvalidHeightError{Expected: s.height + 1, Got: block.Header.Height}
		}
	} else if block.Header.Height != 0 {
		return &InvalidHeightError{Expected: 0, Got: block.Header.Height}
	}

	blockHash := block.Hash
	s.blocks[blockHash] = block
	s.heightIndex[block.Header.Height] = blockHash
	s.tip = &blockHash
	s.height = block.Header.Height

	return nil
}

// GetBlock returns a block by hash.
func (s *ChainState) GetBlock(hash crypto.Hash) (*types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[hash]
	return b, ok
}

// GetBlockAtHeight returns the block stored at height.
func (s *ChainState) GetBlockAtHeight(height uint64) (*types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.heightIndex[height]
	if !ok {
		return nil, false
	}
	b, ok := s.blocks[hash]
	return b, ok
}

// Tip returns the current chain tip block, if any has been applied.
func (s *ChainState) Tip() (*types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tip == nil {
		return nil, false
	}
	b, ok := s.blocks[*s.tip]
	return b, ok
}

// Height returns the header height of the current tip block (0 before any
// block is applied).
func (s *ChainState) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// ComputeStateRoot hashes every account as H(addr || balance.raw(LE) ||
// nonce(LE)) and returns the Merkle root over the hashes sorted by byte
// value, giving a deterministic root independent of map iteration order.
func (s *ChainState) ComputeStateRoot() crypto.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := make([]crypto.Hash, 0, len(s.accounts))
	for addr, acct := range s.accounts {
		h := crypto.NewHasher()
		h.Update(addr[:])
		raw := acct.Balance.RawBytes()
		h.Update(raw[:])
		nonce := make([]byte, 8)
		binary.LittleEndian.PutUint64(nonce, acct.Nonce)
		h.Update(nonce)
		hashes = append(hashes, h.Finalize())
	}

	sort.Slice(hashes, func(i, j int) bool {
		return string(hashes[i][:]) < string(hashes[j][:])
	})

	return crypto.MerkleRoot(hashes)
}

// StoreJob records a job in chain state.
func (s *ChainState) StoreJob(job *types.JobPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// GetJob returns a stored job by ID.
func (s *ChainState) GetJob(id types.Id) (*types.JobPacket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// StoreSolution records a solution in chain state.
func (s *ChainState) StoreSolution(solution *types.SolutionCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions[solution.ID] = solution
}

// GetSolution returns a stored solution by ID.
func (s *ChainState) GetSolution(id types.Id) (*types.SolutionCandidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.solutions[id]
	return sol, ok
}
