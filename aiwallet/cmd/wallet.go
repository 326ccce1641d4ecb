package main

import (
	"aiwallet/aiwallet/app"
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/utils/color"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var balanceNetworks = []string{"eth-mainnet", "eth-sepolia"}

func newCreateAdminWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin-wallet",
		Short: "Generate a new admin account for contract deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := wallet.Generate()
			if err != nil {
				return err
			}
			fmt.Println(color.ColorSuccess("Admin wallet created"))
			fmt.Println("Address:     ", g.Address)
			fmt.Println("Private key: ", g.PrivateKey)
			fmt.Println("Mnemonic:    ", g.Mnemonic)
			fmt.Println()
			fmt.Println(color.ColorWarning("Store these values safely. Set ADMIN_PRIVATE_KEY and fund the address with Sepolia ETH."))
			return nil
		},
	}
}

func newCheckBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-balance <address>",
		Short: "Show an address's balance on mainnet and Sepolia",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%w: %s", wallet.ErrInvalidAddress, args[0])
			}
			cfg := config.LoadConfig()
			if cfg.AlchemyAPIKey == "" {
				return errors.New("ALCHEMY_API_KEY is not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			balances := make([]string, len(balanceNetworks))
			g, gctx := errgroup.WithContext(ctx)
			for i, network := range balanceNetworks {
				i, network := i, network
				g.Go(func() error {
					b, err := balanceOn(gctx, config.RPCURLFor(network, cfg.AlchemyAPIKey), common.HexToAddress(args[0]))
					if err != nil {
						return fmt.Errorf("%s: %w", network, err)
					}
					balances[i] = b
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for i, network := range balanceNetworks {
				fmt.Printf("%-12s %s ETH\n", network, color.ColorInfo(balances[i]))
			}
			return nil
		},
	}
}

func balanceOn(ctx context.Context, url string, addr common.Address) (string, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return "", err
	}
	defer client.Close()
	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return "", err
	}
	return wallet.FormatEther(wei), nil
}

func newClearWalletDataCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "clear-wallet-data",
		Short: "Delete every stored wallet of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.UserDAO.GetUserByUsername(ctx, username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %q not found", username)
			}
			if err := a.Wallets.Clear(ctx, strconv.Itoa(user.ID)); err != nil {
				return err
			}
			fmt.Println(color.ColorSuccess("Wallet data cleared for " + username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "username whose wallets are removed")
	cmd.MarkFlagRequired("user")
	return cmd
}
