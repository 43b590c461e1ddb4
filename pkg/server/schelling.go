// Copyright 2025 Certen Protocol
//
// Mutating RPC surface for external Schelling-point voters: unlike
// query.go's read-only handlers, these accept a voter's commit and
// reveal submissions against an in-flight voting round.

package server

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/schelling"
	"github.com/hardclaw/node/pkg/types"
)

// SchellingHandlers serves a node's commit-reveal voting endpoints.
type SchellingHandlers struct {
	consensus *schelling.Consensus
	logger    *log.Logger
}

// NewSchellingHandlers creates handlers backed by consensus.
func NewSchellingHandlers(consensus *schelling.Consensus, logger *log.Logger) *SchellingHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[schelling-rpc] ", log.LstdFlags)
	}
	return &SchellingHandlers{consensus: consensus, logger: logger}
}

// commitRequest is the JSON body of a POST to the commit endpoint.
type commitRequest struct {
	Voter      string `json:"voter"`      // hex-encoded Ed25519 public key
	Commitment string `json:"commitment"` // hex-encoded SHA3-256(vote_byte||quality_score||nonce)
}

// revealRequest is the JSON body of a POST to the reveal endpoint.
type revealRequest struct {
	Voter        string `json:"voter"`
	Vote         uint8  `json:"vote"` // 0=abstain, 1=accept, 2=reject
	QualityScore uint8  `json:"quality_score"`
	Nonce        string `json:"nonce"` // hex-encoded 32-byte nonce
}

// HandleSubmitCommitment serves POST
// /v1/schelling/{solution_id}/commit. It records a voter's blind
// commitment against the round's commit phase.
func (h *SchellingHandlers) HandleSubmitCommitment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	solutionID, ok := h.parseSolutionID(r.URL.Path, "/commit")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid solution id")
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	voter, err := crypto.PublicKeyFromHex(req.Voter)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid voter public key")
		return
	}
	commitmentBytes, err := hex.DecodeString(req.Commitment)
	if err != nil || len(commitmentBytes) != crypto.HashSize {
		h.writeError(w, http.StatusBadRequest, "invalid commitment")
		return
	}
	var commitment crypto.Commitment
	copy(commitment[:], commitmentBytes)

	vote := &types.VerificationVote{
		SolutionID: solutionID,
		Voter:      voter,
		Commitment: commitment,
	}
	if err := h.consensus.SubmitCommitment(solutionID, vote); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

// HandleRevealVote serves POST /v1/schelling/{solution_id}/reveal. It
// reveals a previously committed vote, checking it against the stored
// commitment.
func (h *SchellingHandlers) HandleRevealVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	solutionID, ok := h.parseSolutionID(r.URL.Path, "/reveal")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid solution id")
		return
	}

	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	voter, err := crypto.PublicKeyFromHex(req.Voter)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid voter public key")
		return
	}
	nonceBytes, err := hex.DecodeString(req.Nonce)
	if err != nil || len(nonceBytes) != crypto.NonceSize {
		h.writeError(w, http.StatusBadRequest, "invalid nonce")
		return
	}
	var nonce [crypto.NonceSize]byte
	copy(nonce[:], nonceBytes)

	if err := h.consensus.RevealVote(solutionID, voter, types.VoteResult(req.Vote), req.QualityScore, nonce); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "revealed"})
}

// parseSolutionID extracts the {solution_id} segment from a path shaped
// /v1/schelling/{solution_id}<suffix>.
func (h *SchellingHandlers) parseSolutionID(path, suffix string) (types.Id, bool) {
	rest := strings.TrimPrefix(path, "/v1/schelling/")
	rest = strings.TrimSuffix(rest, suffix)
	id, err := crypto.HashFromHex(rest)
	if err != nil {
		return types.Id{}, false
	}
	return id, true
}

// Routes registers every handler on mux under its path.
func (h *SchellingHandlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/schelling/", h.dispatch)
}

func (h *SchellingHandlers) dispatch(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/commit"):
		h.HandleSubmitCommitment(w, r)
	case strings.HasSuffix(r.URL.Path, "/reveal"):
		h.HandleRevealVote(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "unknown schelling endpoint")
	}
}

func (h *SchellingHandlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *SchellingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
