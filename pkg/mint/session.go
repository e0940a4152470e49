package mint

/*
Session is the state of one user interacting with the minter. It is owned
by the caller and passed to the Orchestrator methods, it must not be used
by multiple goroutines concurrently.
*/
type Session struct {
	// address of the account shared by the wallet, empty until connected
	Address string `json:"address"`
	// asset ids created by the last successful mint batch
	MintedAssetIDs []uint64 `json:"mintedAssetIds"`
}

func (s *Session) Connected() bool {
	return s.Address != ""
}
