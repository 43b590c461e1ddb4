// Copyright 2025 Certen Protocol
//
// Read-only node introspection API. Not a wallet or transaction
// submission surface: every endpoint here is a GET over state the node
// already holds.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/mempool"
	"github.com/hardclaw/node/pkg/merkle"
	"github.com/hardclaw/node/pkg/stake"
	"github.com/hardclaw/node/pkg/state"
)

// QueryHandlers serves the node's read-only HTTP introspection surface.
type QueryHandlers struct {
	chain   *state.ChainState
	pool    *mempool.Mempool
	staking *stake.Manager
	logger  *log.Logger
}

// NewQueryHandlers creates handlers backed by chain, pool, and staking.
func NewQueryHandlers(chain *state.ChainState, pool *mempool.Mempool, staking *stake.Manager, logger *log.Logger) *QueryHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[query] ", log.LstdFlags)
	}
	return &QueryHandlers{chain: chain, pool: pool, staking: staking, logger: logger}
}

// HandleChainTip serves GET /v1/chain/tip.
func (h *QueryHandlers) HandleChainTip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tip, ok := h.chain.Tip()
	if !ok {
		h.writeError(w, http.StatusNotFound, "chain has no blocks yet")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hash":   tip.Hash.Hex(),
		"height": h.chain.Height(),
	})
}

// HandleGetBlock serves GET /v1/chain/block/{height}.
func (h *QueryHandlers) HandleGetBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	heightStr := strings.TrimPrefix(r.URL.Path, "/v1/chain/block/")
	height, err := strconv.ParseUint(heightStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid height")
		return
	}

	block, ok := h.chain.GetBlockAtHeight(height)
	if !ok {
		h.writeError(w, http.StatusNotFound, "block not found")
		return
	}

	h.writeJSON(w, http.StatusOK, block)
}

// HandleMempoolStats serves GET /v1/mempool/stats.
func (h *QueryHandlers) HandleMempoolStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	size := h.pool.Size()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":      size.Jobs,
		"solutions": size.Solutions,
	})
}

// HandleStakeByAddress serves GET /v1/stake/{address}.
func (h *QueryHandlers) HandleStakeByAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	addrStr := strings.TrimPrefix(r.URL.Path, "/v1/stake/")
	addr, err := crypto.ParseAddress(addrStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	info, err := h.staking.Get(addr)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "no stake found for address")
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

// HandleVerificationProof serves GET
// /v1/chain/block/{height}/verification/{solution_id}/proof. It returns a
// Merkle inclusion proof tying the given solution ID to the block's
// header.SolutionsRoot, so a caller can verify membership without trusting
// this node's response.
func (h *QueryHandlers) HandleVerificationProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/chain/block/")
	parts := strings.Split(rest, "/verification/")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], "/proof") {
		h.writeError(w, http.StatusBadRequest, "expected /v1/chain/block/{height}/verification/{solution_id}/proof")
		return
	}
	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid height")
		return
	}
	solutionIDHex := strings.TrimSuffix(parts[1], "/proof")
	solutionID, err := crypto.HashFromHex(solutionIDHex)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid solution id")
		return
	}

	block, ok := h.chain.GetBlockAtHeight(height)
	if !ok {
		h.writeError(w, http.StatusNotFound, "block not found")
		return
	}

	leaves := make([]crypto.Hash, len(block.Verifications))
	leafIndex := -1
	for i, v := range block.Verifications {
		leaves[i] = v.SolutionID
		if v.SolutionID == solutionID {
			leafIndex = i
		}
	}
	if leafIndex == -1 {
		h.writeError(w, http.StatusNotFound, "solution not verified in this block")
		return
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to build proof tree")
		return
	}
	proof, err := tree.GenerateProof(leafIndex)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to generate proof")
		return
	}

	h.writeJSON(w, http.StatusOK, proof)
}

// Routes registers every handler on mux under its path.
func (h *QueryHandlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/chain/tip", h.HandleChainTip)
	mux.HandleFunc("/v1/chain/block/", h.handleBlockOrProof)
	mux.HandleFunc("/v1/mempool/stats", h.HandleMempoolStats)
	mux.HandleFunc("/v1/stake/", h.HandleStakeByAddress)
}

// handleBlockOrProof dispatches /v1/chain/block/{height} to HandleGetBlock
// and /v1/chain/block/{height}/verification/{id}/proof to
// HandleVerificationProof, since both share the same mux prefix.
func (h *QueryHandlers) handleBlockOrProof(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.URL.Path, "/verification/") {
		h.HandleVerificationProof(w, r)
		return
	}
	h.HandleGetBlock(w, r)
}

func (h *QueryHandlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *QueryHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
