package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/stake"
	"github.com/hardclaw/node/pkg/state"
	"github.com/hardclaw/node/pkg/types"
)

// KV defines the key-value store interface LedgerStore is built on. A
// kvdb.KVAdapter wrapping cometbft-db satisfies this for production use;
// tests can supply an in-memory map-backed implementation.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	// Iterate scans every key with the given prefix in ascending order,
	// calling fn with each key/value pair. fn returns false to stop
	// iteration early.
	Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error
}

// LedgerStore durably persists blocks and the chain tip, plus account,
// job, solution, and verifier stake records. A restarted node rebuilds its
// chain state by replaying the stored blocks.
//
// CONCURRENCY: LedgerStore assumes single-writer access and is designed to
// be called from the block-commit path only. If it needs to be used from
// multiple goroutines, wrap it with your own synchronization.
type LedgerStore struct {
	kv KV
}

// NewLedgerStore creates a new LedgerStore backed by kv.
func NewLedgerStore(kv KV) *LedgerStore {
	return &LedgerStore{kv: kv}
}

// ====== KV Key Layout ======

var (
	keyChainMeta       = []byte("chain:meta")          // -> ChainMeta
	keyBlockHashPrefix = []byte("chain:block:hash:")   // + hex hash -> types.Block
	keyBlockHtPrefix   = []byte("chain:block:height:") // + big-endian height -> hex hash
	keyAccountPrefix   = []byte("chain:account:")       // + address bytes -> state.AccountState
	keyJobPrefix       = []byte("chain:job:")           // + job id bytes -> types.JobPacket
	keySolutionPrefix  = []byte("chain:solution:")      // + solution id bytes -> types.SolutionCandidate
	keyStakePrefix     = []byte("chain:stake:")         // + verifier pubkey bytes -> stake.StakeInfo
)

func blockHashKey(hash crypto.Hash) []byte {
	return append(append([]byte{}, keyBlockHashPrefix...), []byte(hash.Hex())...)
}

func blockHeightKey(height uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, height)
	return append(append([]byte{}, keyBlockHtPrefix...), b...)
}

func accountKey(addr crypto.Address) []byte {
	return append(append([]byte{}, keyAccountPrefix...), addr.Bytes()...)
}

func jobKey(id crypto.Hash) []byte {
	return append(append([]byte{}, keyJobPrefix...), id.Bytes()...)
}

func solutionKey(id crypto.Hash) []byte {
	return append(append([]byte{}, keySolutionPrefix...), id.Bytes()...)
}

func stakeKey(verifier crypto.PublicKey) []byte {
	return append(append([]byte{}, keyStakePrefix...), verifier.Bytes()...)
}

// ====== Chain Meta ======

// SaveChainMeta persists the current tip height and hash.
func (s *LedgerStore) SaveChainMeta(height uint64, hash crypto.Hash) error {
	b, err := json.Marshal(ChainMeta{Height: height, Hash: hash.Hex()})
	if err != nil {
		return fmt.Errorf("marshal chain meta: %w", err)
	}
	return s.kv.Set(keyChainMeta, b)
}

// LoadChainMeta returns the persisted tip, or ErrChainMetaNotFound on a
// fresh store.
func (s *LedgerStore) LoadChainMeta() (*ChainMeta, error) {
	b, err := s.kv.Get(keyChainMeta)
	if err != nil {
		return nil, fmt.Errorf("get chain meta: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrChainMetaNotFound
	}
	var m ChainMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal chain meta: %w", err)
	}
	return &m, nil
}

// ====== Blocks ======

// SaveBlock persists a block indexed by both hash and height, and advances
// the chain tip to it.
func (s *LedgerStore) SaveBlock(block *types.Block) error {
	b, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	if err := s.kv.Set(blockHashKey(block.Hash), b); err != nil {
		return fmt.Errorf("set block by hash: %w", err)
	}
	if err := s.kv.Set(blockHeightKey(block.Header.Height), []byte(block.Hash.Hex())); err != nil {
		return fmt.Errorf("set block height index: %w", err)
	}
	return s.SaveChainMeta(block.Header.Height, block.Hash)
}

// LoadBlockByHash returns the block with the given hash, or ErrNotFound.
func (s *LedgerStore) LoadBlockByHash(hash crypto.Hash) (*types.Block, error) {
	b, err := s.kv.Get(blockHashKey(hash))
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrNotFound
	}
	var block types.Block
	if err := json.Unmarshal(b, &block); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	return &block, nil
}

// LoadBlockByHeight returns the block at the given height, or ErrNotFound.
func (s *LedgerStore) LoadBlockByHeight(height uint64) (*types.Block, error) {
	hexHash, err := s.kv.Get(blockHeightKey(height))
	if err != nil {
		return nil, fmt.Errorf("get block height index: %w", err)
	}
	if len(hexHash) == 0 {
		return nil, ErrNotFound
	}
	hash, err := crypto.HashFromHex(string(hexHash))
	if err != nil {
		return nil, fmt.Errorf("decode block hash: %w", err)
	}
	return s.LoadBlockByHash(hash)
}

// ====== Accounts ======

// SaveAccount persists addr's account state.
func (s *LedgerStore) SaveAccount(addr crypto.Address, acct state.AccountState) error {
	b, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	return s.kv.Set(accountKey(addr), b)
}

// LoadAccount returns addr's persisted account state, or ErrNotFound if the
// address has never been written.
func (s *LedgerStore) LoadAccount(addr crypto.Address) (state.AccountState, error) {
	b, err := s.kv.Get(accountKey(addr))
	if err != nil {
		return state.AccountState{}, fmt.Errorf("get account: %w", err)
	}
	if len(b) == 0 {
		return state.AccountState{}, ErrNotFound
	}
	var acct state.AccountState
	if err := json.Unmarshal(b, &acct); err != nil {
		return state.AccountState{}, fmt.Errorf("unmarshal account: %w", err)
	}
	return acct, nil
}

// ====== Jobs ======

// SaveJob persists a job packet by its ID.
func (s *LedgerStore) SaveJob(job *types.JobPacket) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.kv.Set(jobKey(job.ID), b)
}

// LoadJob returns the persisted job packet with the given ID, or ErrNotFound.
func (s *LedgerStore) LoadJob(id crypto.Hash) (*types.JobPacket, error) {
	b, err := s.kv.Get(jobKey(id))
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrNotFound
	}
	var job types.JobPacket
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// ====== Solutions ======

// SaveSolution persists a solution candidate by its ID.
func (s *LedgerStore) SaveSolution(solution *types.SolutionCandidate) error {
	b, err := json.Marshal(solution)
	if err != nil {
		return fmt.Errorf("marshal solution: %w", err)
	}
	return s.kv.Set(solutionKey(solution.ID), b)
}

// LoadSolution returns the persisted solution candidate with the given ID,
// or ErrNotFound.
func (s *LedgerStore) LoadSolution(id crypto.Hash) (*types.SolutionCandidate, error) {
	b, err := s.kv.Get(solutionKey(id))
	if err != nil {
		return nil, fmt.Errorf("get solution: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrNotFound
	}
	var solution types.SolutionCandidate
	if err := json.Unmarshal(b, &solution); err != nil {
		return nil, fmt.Errorf("unmarshal solution: %w", err)
	}
	return &solution, nil
}

// ====== Verifier Stake ======

// SaveStake persists a verifier's stake info.
func (s *LedgerStore) SaveStake(verifier crypto.PublicKey, info stake.StakeInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal stake info: %w", err)
	}
	return s.kv.Set(stakeKey(verifier), b)
}

// LoadStake returns the persisted stake info for verifier, or ErrNotFound.
func (s *LedgerStore) LoadStake(verifier crypto.PublicKey) (stake.StakeInfo, error) {
	b, err := s.kv.Get(stakeKey(verifier))
	if err != nil {
		return stake.StakeInfo{}, fmt.Errorf("get stake info: %w", err)
	}
	if len(b) == 0 {
		return stake.StakeInfo{}, ErrNotFound
	}
	var info stake.StakeInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return stake.StakeInfo{}, fmt.Errorf("unmarshal stake info: %w", err)
	}
	return info, nil
}

// ListStakes returns every persisted verifier stake record, for rebuilding
// an in-memory stake.Manager when a node restarts.
func (s *LedgerStore) ListStakes() ([]stake.StakeInfo, error) {
	var infos []stake.StakeInfo
	err := s.kv.Iterate(keyStakePrefix, func(_, value []byte) (bool, error) {
		var info stake.StakeInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return false, fmt.Errorf("unmarshal stake info: %w", err)
		}
		infos = append(infos, info)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate stakes: %w", err)
	}
	return infos, nil
}
