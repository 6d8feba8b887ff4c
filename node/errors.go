package node

import "errors"

var (
	ErrMiningInProgress = errors.New("a mining operation is already running")
	ErrBlockNotFound    = errors.New("block not found")
	ErrGenesisRemine    = errors.New("the genesis block cannot be re-mined")
	ErrTransactionIndex = errors.New("transaction index out of range")
	ErrEmptyChain       = errors.New("chain has no blocks")
	ErrClosed           = errors.New("engine is closed")
)
