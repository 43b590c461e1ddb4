package ledger

// ChainMeta stores the global tip pointer for the persisted chain.
type ChainMeta struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"` // hex-encoded block hash
}
