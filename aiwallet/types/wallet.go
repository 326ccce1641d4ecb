package types

import "aiwallet/aiwallet/services/walletlist"

// AgentCommandRequest is the body of the classifier relay.
type AgentCommandRequest struct {
	Command string `json:"command"`
}

type CreateWalletRequest struct {
	Name string `json:"name,omitempty"`
}

// ImportWalletRequest binds an existing contract. Secret is a hex private key
// or a BIP-39 mnemonic.
type ImportWalletRequest struct {
	Name            string `json:"name,omitempty"`
	Secret          string `json:"secret"`
	ContractAddress string `json:"contractAddress"`
}

type RenameWalletRequest struct {
	Name string `json:"name"`
}

// CreatedWalletResponse is the only response that ever carries the secrets.
type CreatedWalletResponse struct {
	Wallet     walletlist.Record `json:"wallet"`
	PrivateKey string            `json:"privateKey"`
	Mnemonic   string            `json:"mnemonic"`
	DeployTx   string            `json:"deployTx,omitempty"`
}

// TxResponse carries the hash of a submitted contract call.
type TxResponse struct {
	TxHash string `json:"txHash"`
}
