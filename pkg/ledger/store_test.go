package ledger

import (
	"sort"
	"strings"
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/stake"
	"github.com/hardclaw/node/pkg/state"
	"github.com/hardclaw/node/pkg/types"
)

type memKV struct {
	m map[string][]byte
}

func newMemKV() *memKV { return &memKV{m: make(map[string][]byte)} }

func (k *memKV) Get(key []byte) ([]byte, error) { return k.m[string(key)], nil }
func (k *memKV) Set(key, value []byte) error {
	k.m[string(key)] = append([]byte{}, value...)
	return nil
}

func (k *memKV) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	var keys []string
	for key := range k.m {
		if strings.HasPrefix(key, string(prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		cont, err := fn([]byte(key), k.m[key])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func TestLedgerStoreBlockRoundTrip(t *testing.T) {
	store := NewLedgerStore(newMemKV())
	kp, _ := crypto.GenerateKeypair()

	genesis := types.Genesis(kp, types.NowMillis())
	if err := store.SaveBlock(genesis); err != nil {
		t.Fatalf("save block: %v", err)
	}

	byHash, err := store.LoadBlockByHash(genesis.Hash)
	if err != nil {
		t.Fatalf("load by hash: %v", err)
	}
	if byHash.Hash != genesis.Hash {
		t.Fatalf("hash mismatch: got %s want %s", byHash.Hash, genesis.Hash)
	}

	byHeight, err := store.LoadBlockByHeight(genesis.Header.Height)
	if err != nil {
		t.Fatalf("load by height: %v", err)
	}
	if byHeight.Hash != genesis.Hash {
		t.Fatalf("height index mismatch")
	}

	meta, err := store.LoadChainMeta()
	if err != nil {
		t.Fatalf("load chain meta: %v", err)
	}
	if meta.Height != genesis.Header.Height {
		t.Fatalf("chain meta height mismatch: got %d want %d", meta.Height, genesis.Header.Height)
	}
}

func TestLedgerStoreNotFound(t *testing.T) {
	store := NewLedgerStore(newMemKV())

	if _, err := store.LoadChainMeta(); err != ErrChainMetaNotFound {
		t.Fatalf("expected ErrChainMetaNotFound, got %v", err)
	}
	if _, err := store.LoadBlockByHeight(5); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerStoreAccountJobSolutionStake(t *testing.T) {
	store := NewLedgerStore(newMemKV())

	requester, _ := crypto.GenerateKeypair()
	solver, _ := crypto.GenerateKeypair()
	verifier, _ := crypto.GenerateKeypair()

	addr := requester.Address()
	acct := state.NewAccountState(types.AmountFromHclaw(500))
	if err := store.SaveAccount(addr, acct); err != nil {
		t.Fatalf("save account: %v", err)
	}
	gotAcct, err := store.LoadAccount(addr)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if gotAcct.Balance != acct.Balance {
		t.Fatalf("account balance mismatch")
	}

	job, err := types.NewJobPacket(
		requester,
		types.JobTypeDeterministic,
		[]byte("input"),
		"desc",
		types.AmountFromHclaw(10),
		types.AmountFromHclaw(1),
		types.VerificationSpec{Kind: types.VerificationKindHashMatch, ExpectedHash: crypto.HashData([]byte("out"))},
		types.NowMillis(),
		types.NowMillis()+1000,
	)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.SaveJob(job); err != nil {
		t.Fatalf("save job: %v", err)
	}
	gotJob, err := store.LoadJob(job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if gotJob.ID != job.ID {
		t.Fatalf("job id mismatch")
	}

	solution := types.NewSolutionCandidate(solver, job.ID, []byte("out"), types.NowMillis())
	if err := store.SaveSolution(solution); err != nil {
		t.Fatalf("save solution: %v", err)
	}
	gotSolution, err := store.LoadSolution(solution.ID)
	if err != nil {
		t.Fatalf("load solution: %v", err)
	}
	if gotSolution.JobID != job.ID {
		t.Fatalf("solution job id mismatch")
	}

	info := stake.StakeInfo{Verifier: verifier.PublicKey(), Amount: types.AmountFromHclaw(1000), IsActive: true}
	if err := store.SaveStake(verifier.PublicKey(), info); err != nil {
		t.Fatalf("save stake: %v", err)
	}
	gotStake, err := store.LoadStake(verifier.PublicKey())
	if err != nil {
		t.Fatalf("load stake: %v", err)
	}
	if !gotStake.IsActive || gotStake.Amount != info.Amount {
		t.Fatalf("stake info mismatch")
	}
}

func TestLedgerStoreListStakesRestoresManager(t *testing.T) {
	store := NewLedgerStore(newMemKV())

	v1, _ := crypto.GenerateKeypair()
	v2, _ := crypto.GenerateKeypair()

	infos := []stake.StakeInfo{
		{Verifier: v1.PublicKey(), Amount: types.AmountFromHclaw(1000), IsActive: true},
		{Verifier: v2.PublicKey(), Amount: types.AmountFromHclaw(2500), IsActive: true},
	}
	for _, info := range infos {
		if err := store.SaveStake(info.Verifier, info); err != nil {
			t.Fatalf("save stake: %v", err)
		}
	}

	listed, err := store.ListStakes()
	if err != nil {
		t.Fatalf("list stakes: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 stakes, got %d", len(listed))
	}

	mgr := stake.NewManager()
	for _, info := range listed {
		mgr.Restore(info)
	}

	for _, info := range infos {
		got, err := mgr.Get(info.Verifier.Address())
		if err != nil {
			t.Fatalf("get restored stake: %v", err)
		}
		if got.Amount != info.Amount || !got.IsActive {
			t.Fatalf("restored stake mismatch for %s", info.Verifier.Address())
		}
	}
}
