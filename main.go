// Copyright 2025 Certen Protocol

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hardclaw/node/pkg/config"
	"github.com/hardclaw/node/pkg/consensus"
	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/database"
	"github.com/hardclaw/node/pkg/honeypot"
	"github.com/hardclaw/node/pkg/kvdb"
	"github.com/hardclaw/node/pkg/ledger"
	"github.com/hardclaw/node/pkg/mempool"
	"github.com/hardclaw/node/pkg/sandbox"
	"github.com/hardclaw/node/pkg/schelling"
	"github.com/hardclaw/node/pkg/server"
	"github.com/hardclaw/node/pkg/stake"
	"github.com/hardclaw/node/pkg/state"
	"github.com/hardclaw/node/pkg/tokenomics"
	"github.com/hardclaw/node/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config overlay")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger := log.New(os.Stdout, "[hardclaw] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	keypair, err := crypto.LoadOrGenerateKeypair(keyPath(cfg))
	if err != nil {
		log.Fatalf("load identity key: %v", err)
	}
	logger.Printf("node identity: %s", keypair.Address())

	db, err := openKVBackend(cfg)
	if err != nil {
		log.Fatalf("open kv backend: %v", err)
	}
	defer db.Close()

	ledgerStore := ledger.NewLedgerStore(kvdb.NewKVAdapter(db))
	chain := state.New()

	if err := recoverOrBootstrapChain(chain, ledgerStore, keypair, logger); err != nil {
		log.Fatalf("recover chain state: %v", err)
	}

	dbClient, archive := openArchive(cfg, logger)
	if dbClient != nil {
		defer dbClient.Close()
	}

	pool := mempool.New()

	staking := stake.NewManager()
	staking.SetMinStake(types.AmountFromHclaw(cfg.MinStakeHclaw))
	if err := restoreStakes(ledgerStore, staking, logger); err != nil {
		log.Fatalf("restore stake records: %v", err)
	}

	sandboxRegistry := sandbox.NewDefaultRegistry(sandbox.Config{
		Timeout:        cfg.SandboxTimeout,
		MaxMemoryBytes: cfg.SandboxMaxMemoryBytes,
		MaxStackBytes:  cfg.SandboxMaxStackBytes,
	})
	pov := consensus.NewProofOfVerification(sandboxRegistry, nil)
	producer := consensus.NewBlockProducer(keypair, pov, consensus.BlockProducerConfig{
		MaxSolutionsPerBlock: cfg.MaxSolutionsPerBlock,
		MaxBlockSize:         cfg.MaxBlockSizeBytes,
		TargetBlockTimeMs:    cfg.TargetBlockTimeMs,
		MinVerifications:     cfg.MinVerificationsToBuild,
	})

	tip, _ := chain.Tip()
	producer.SetChainState(chain.Height(), tip.Hash)

	econEngine := tokenomics.NewEngine(tokenomics.Config{
		SolverShare:       cfg.FeeSplitRequester,
		VerifierShare:     cfg.FeeSplitVerifier,
		BurnShare:         cfg.FeeSplitBurn,
		MinBurnToRequest:  types.AmountFromHclaw(cfg.BurnFeeMinHclaw),
		TargetBlockReward: types.AmountFromHclaw(cfg.BlockRewardHclaw),
	})
	honeypotGenerator := honeypot.NewGenerator(cfg.HoneyPotSampleRatePct / 100)
	honeypotDetector := honeypot.NewDetector()
	schellingConsensus := schelling.NewConsensus(schelling.Config{
		SolverRedundancy:    schelling.DefaultConfig().SolverRedundancy,
		MinVoters:           cfg.SchellingMinVoters,
		CommitPhaseMs:       int64(cfg.SchellingCommitWindowMs),
		RevealPhaseMs:       int64(cfg.SchellingRevealWindowMs),
		QualityThreshold:    schelling.DefaultConfig().QualityThreshold,
		DeviantSlashPercent: schelling.DefaultConfig().DeviantSlashPercent,
	})

	registry := prometheus.NewRegistry()
	metrics := server.NewMetrics(registry)

	queryHandlers := server.NewQueryHandlers(chain, pool, staking, logger)
	schellingHandlers := server.NewSchellingHandlers(schellingConsensus, logger)
	rpcMux := http.NewServeMux()
	queryHandlers.Routes(rpcMux)
	schellingHandlers.Routes(rpcMux)
	rpcServer := &http.Server{Addr: cfg.RPCAddr, Handler: rpcMux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler(registry))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("rpc server listening on %s", cfg.RPCAddr)
		if err := rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("rpc server error: %v", err)
		}
	}()
	go func() {
		logger.Printf("metrics server listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	runBlockProductionLoop(ctx, cfg, chain, pool, staking, pov, producer, ledgerStore, metrics, logger,
		keypair, econEngine, honeypotGenerator, honeypotDetector, schellingConsensus, archive)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = rpcServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Println("shutdown complete")
}

func keyPath(cfg *config.Config) string {
	if cfg.KeyPath != "" {
		return cfg.KeyPath
	}
	return cfg.DataDir + "/identity.key"
}

// openKVBackend opens the embedded KV store cometbft-db backs the ledger
// with, selecting the engine named by cfg.KVStoreBackend.
func openKVBackend(cfg *config.Config) (dbm.DB, error) {
	var backend dbm.BackendType
	switch cfg.KVStoreBackend {
	case "badger":
		backend = dbm.BadgerDBBackend
	case "goleveldb":
		backend = dbm.GoLevelDBBackend
	case "memdb":
		backend = dbm.MemDBBackend
	default:
		return nil, fmt.Errorf("unknown kv store backend %q", cfg.KVStoreBackend)
	}
	if err := os.MkdirAll(cfg.KVStoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("create kv store dir: %w", err)
	}
	return dbm.NewDB("hardclaw", backend, cfg.KVStoreDir)
}

// openArchive connects the optional Postgres analytics archive if
// cfg.DatabaseURL is set, running pending migrations. A nil repository
// (with a logged reason) is a valid outcome: the archive is a secondary,
// query-oriented store the consensus-critical path never depends on.
func openArchive(cfg *config.Config, logger *log.Logger) (*database.Client, *database.ArchiveRepository) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	client, err := database.NewClient(cfg, database.WithLogger(logger))
	if err != nil {
		logger.Printf("archive database unavailable, continuing without it: %v", err)
		return nil, nil
	}
	if err := client.MigrateUp(context.Background()); err != nil {
		logger.Printf("archive database migration failed, continuing without it: %v", err)
		client.Close()
		return nil, nil
	}
	return client, database.NewArchiveRepository(client)
}

// recoverOrBootstrapChain replays every persisted block into chain, or
// writes and applies a fresh genesis block if the ledger is empty.
func recoverOrBootstrapChain(chain *state.ChainState, ledgerStore *ledger.LedgerStore, keypair *crypto.Keypair, logger *log.Logger) error {
	meta, err := ledgerStore.LoadChainMeta()
	if err == ledger.ErrChainMetaNotFound {
		genesis := types.Genesis(keypair, types.NowMillis())
		if err := chain.ApplyBlock(genesis); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		if err := ledgerStore.SaveBlock(genesis); err != nil {
			return fmt.Errorf("persist genesis: %w", err)
		}
		logger.Printf("bootstrapped genesis block %s", genesis.Hash.Hex())
		return nil
	}
	if err != nil {
		return err
	}

	for height := uint64(0); height <= meta.Height; height++ {
		block, err := ledgerStore.LoadBlockByHeight(height)
		if err != nil {
			return fmt.Errorf("load block %d: %w", height, err)
		}
		if err := chain.ApplyBlock(block); err != nil {
			return fmt.Errorf("replay block %d: %w", height, err)
		}
	}
	logger.Printf("recovered chain at height %d", chain.Height())
	return nil
}

// restoreStakes rebuilds staking's in-memory verifier records from whatever
// the ledger store persisted in prior runs, so a restarted node doesn't
// forget every verifier's stake and start treating them all as unstaked.
func restoreStakes(ledgerStore *ledger.LedgerStore, staking *stake.Manager, logger *log.Logger) error {
	infos, err := ledgerStore.ListStakes()
	if err != nil {
		return fmt.Errorf("list persisted stakes: %w", err)
	}
	for _, info := range infos {
		staking.Restore(info)
	}
	if len(infos) > 0 {
		logger.Printf("restored %d verifier stake records", len(infos))
	}
	return nil
}

// subjectiveRound tracks a Schelling-point job awaiting round finalization
// alongside the job needed to pay out its bounty once it is.
type subjectiveRound struct {
	job      *types.JobPacket
	solution *types.SolutionCandidate
}

// runBlockProductionLoop pulls solutions from the mempool, verifies them
// through the PoV engine or the Schelling-point voting engine (depending
// on the job's declared verification kind), and periodically assembles
// and commits a new block until ctx is cancelled.
func runBlockProductionLoop(
	ctx context.Context,
	cfg *config.Config,
	chain *state.ChainState,
	pool *mempool.Mempool,
	staking *stake.Manager,
	pov *consensus.ProofOfVerification,
	producer *consensus.BlockProducer,
	ledgerStore *ledger.LedgerStore,
	metrics *server.Metrics,
	logger *log.Logger,
	nodeKeypair *crypto.Keypair,
	econEngine *tokenomics.Engine,
	honeypotGenerator *honeypot.Generator,
	honeypotDetector *honeypot.Detector,
	schellingConsensus *schelling.Consensus,
	archive *database.ArchiveRepository,
) {
	ticker := time.NewTicker(time.Duration(cfg.TargetBlockTimeMs) * time.Millisecond)
	defer ticker.Stop()

	pendingSubjective := make(map[types.Id]*subjectiveRound)

	for {
		select {
		case <-ctx.Done():
			logger.Println("block production loop stopping")
			return
		case <-ticker.C:
			now := types.NowMillis()
			pov.CleanupCache()

			for _, pair := range pool.PopSolutions(cfg.MaxSolutionsPerBlock) {
				chain.StoreJob(pair.Job)
				chain.StoreSolution(pair.Solution)
				archiveJobAndSolution(ctx, archive, pair.Job, pair.Solution, logger)

				if pair.Job.Verification.Kind == types.VerificationKindSchellingPoint {
					if _, active := pendingSubjective[pair.Solution.ID]; !active {
						pendingSubjective[pair.Solution.ID] = &subjectiveRound{job: pair.Job, solution: pair.Solution}
						if _, err := schellingConsensus.StartRound(pair.Solution.ID, now); err != nil {
							logger.Printf("start schelling round %s: %v", pair.Solution.ID.Hex(), err)
						}
					}
					continue
				}

				if honeypotGenerator.ShouldInject() {
					fake := honeypotGenerator.Generate(nodeKeypair, pair.Job, now)
					honeypotDetector.Register(fake.ID)
					if err := pool.AddSolution(fake); err != nil {
						logger.Printf("inject honey pot for job %s: %v", pair.Job.ID.Hex(), err)
					}
				}

				result, err := producer.VerifySolution(ctx, pair.Job, pair.Solution)
				if err != nil {
					logger.Printf("verify solution %s: %v", pair.Solution.ID.Hex(), err)
					continue
				}
				metrics.AttestationsCollected.Inc()
				if !result.Passed {
					logger.Printf("solution %s failed verification", pair.Solution.ID.Hex())
					continue
				}

				if honeypotDetector.IsHoneyPot(result.SolutionID) {
					honeypotDetector.RecordOffender(result.Verifier, result.SolutionID)
					if _, err := staking.Slash(result.Verifier.Address(), stake.SlashingReason{Kind: stake.KindHoneyPotApproval}, now); err != nil {
						logger.Printf("slash honey pot offender %s: %v", result.Verifier.Address(), err)
					}
					continue
				}

				distribution := econEngine.ProcessJobCompletion(pair.Job.Bounty, pair.Solution.SolverAddr, result.Verifier.Address(), now)
				logger.Printf("job %s paid out: solver=%s verifier=%s burned=%s", pair.Job.ID.Hex(), distribution.SolverAmount, distribution.VerifierAmount, distribution.BurnAmount)
			}

			schellingConsensus.Tick(now)
			for solutionID, round := range pendingSubjective {
				active, ok := schellingConsensus.GetRound(solutionID)
				if !ok || active.Phase() != schelling.PhaseComplete {
					continue
				}
				outcome, err := schellingConsensus.FinalizeRound(solutionID, now)
				delete(pendingSubjective, solutionID)
				if err != nil {
					logger.Printf("finalize schelling round %s: %v", solutionID.Hex(), err)
					continue
				}

				for _, deviant := range outcome.Deviants {
					if _, err := staking.Slash(deviant.Address(), stake.SlashingReason{Kind: stake.KindInvalidVerification}, now); err != nil {
						logger.Printf("slash schelling deviant %s: %v", deviant.Address(), err)
					}
				}

				if !outcome.Accepted {
					logger.Printf("schelling round %s rejected", solutionID.Hex())
					continue
				}

				verifierAddr := round.solution.SolverAddr
				for addr, vote := range active.Votes() {
					if vote.IsRevealed() && vote.Vote == types.VoteAccept {
						verifierAddr = addr
						break
					}
				}
				distribution := econEngine.ProcessJobCompletion(round.job.Bounty, round.solution.SolverAddr, verifierAddr, now)
				logger.Printf("schelling round %s accepted, job %s paid out: solver=%s verifier=%s burned=%s", solutionID.Hex(), round.job.ID.Hex(), distribution.SolverAmount, distribution.VerifierAmount, distribution.BurnAmount)
			}

			if !producer.ShouldProduceBlock() {
				continue
			}

			parent, _ := chain.Tip()

			block, err := producer.ProduceBlock(chain.ComputeStateRoot())
			if err != nil {
				logger.Printf("produce block: %v", err)
				continue
			}

			totalVerifiers := staking.ActiveVerifierCount()
			if totalVerifiers == 0 {
				// No staked verifiers yet (bootstrap): still accept the
				// producer's own attestation so the chain can advance.
				totalVerifiers = 1
			}
			if err := pov.ValidateBlock(block, parent, totalVerifiers); err != nil {
				logger.Printf("validate block: %v", err)
				continue
			}
			if err := chain.ApplyBlock(block); err != nil {
				logger.Printf("apply block: %v", err)
				continue
			}
			if err := ledgerStore.SaveBlock(block); err != nil {
				logger.Printf("persist block: %v", err)
				continue
			}
			producer.SetChainState(block.Header.Height, block.Hash)

			if block.Header.Height > 0 {
				econEngine.Supply().RecordBlockTime(uint64(block.Header.Timestamp - parent.Header.Timestamp))
			}
			reward := econEngine.CalculateBlockReward(econEngine.Supply().Difficulty())
			chain.GetOrCreateAccount(block.Header.Proposer.Address()).Credit(reward)
			econEngine.Supply().RecordMint(reward)

			archiveBlock(ctx, archive, block, totalVerifiers, logger)
			metrics.BlocksProduced.Inc()
			size := pool.Size()
			metrics.MempoolDepth.WithLabelValues("jobs").Set(float64(size.Jobs))
			metrics.MempoolDepth.WithLabelValues("solutions").Set(float64(size.Solutions))
			logger.Printf("produced block %d (%s), %d verifications", block.Header.Height, block.Hash.Hex(), len(block.Verifications))
		}
	}
}

// archiveJobAndSolution best-effort records a job/solution pair to the
// optional Postgres archive. A nil archive (no DATABASE_URL configured)
// is a silent no-op.
func archiveJobAndSolution(ctx context.Context, archive *database.ArchiveRepository, job *types.JobPacket, solution *types.SolutionCandidate, logger *log.Logger) {
	if archive == nil {
		return
	}
	if err := archive.InsertJob(ctx, job); err != nil {
		logger.Printf("archive job %s: %v", job.ID.Hex(), err)
	}
	if err := archive.InsertSolution(ctx, solution); err != nil {
		logger.Printf("archive solution %s: %v", solution.ID.Hex(), err)
	}
}

// archiveBlock best-effort records a committed block and its
// verifications to the optional Postgres archive.
func archiveBlock(ctx context.Context, archive *database.ArchiveRepository, block *types.Block, totalVerifiers int, logger *log.Logger) {
	if archive == nil {
		return
	}
	if err := archive.InsertBlock(ctx, block, totalVerifiers); err != nil {
		logger.Printf("archive block %d: %v", block.Header.Height, err)
	}
	for _, v := range block.Verifications {
		if err := archive.InsertVerification(ctx, v, block.Header.Height); err != nil {
			logger.Printf("archive verification %s: %v", v.SolutionID.Hex(), err)
		}
	}
}
