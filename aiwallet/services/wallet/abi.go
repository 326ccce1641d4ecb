package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrNoBytecode = errors.New("wallet contract bytecode not available")

// walletABI is the AIAgentWallet interface used by the app.
const walletABI = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"_owner","type":"address"},{"name":"_dailyLimit","type":"uint256"}]},
  {"type":"function","name":"executeTransaction","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"dailyLimit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"dailySpent","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isLocked","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"toggleLock","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"updateWhitelist","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"status","type":"bool"}],"outputs":[]},
  {"type":"function","name":"emergencyWithdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"receive","stateMutability":"payable"}
]`

var parsedWalletABI = mustParseABI(walletABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Artifact is the subset of a Hardhat build artifact needed to deploy.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads the compiled wallet contract. The artifact ABI wins over
// the built-in one when present.
func LoadArtifact(path string) (abi.ABI, []byte, error) {
	if path == "" {
		return abi.ABI{}, nil, ErrNoBytecode
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abi.ABI{}, nil, fmt.Errorf("%w: %s", ErrNoBytecode, path)
		}
		return abi.ABI{}, nil, err
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return abi.ABI{}, nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if art.Bytecode == "" || art.Bytecode == "0x" {
		return abi.ABI{}, nil, fmt.Errorf("%w: %s has no bytecode", ErrNoBytecode, path)
	}
	code, err := hexutil.Decode(art.Bytecode)
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("artifact bytecode: %w", err)
	}

	parsed := parsedWalletABI
	if len(art.ABI) > 0 && string(art.ABI) != "null" {
		if parsed, err = abi.JSON(strings.NewReader(string(art.ABI))); err != nil {
			return abi.ABI{}, nil, fmt.Errorf("artifact abi: %w", err)
		}
	}
	return parsed, code, nil
}
