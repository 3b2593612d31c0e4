package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"tradegate/pkg/confkit"
	"tradegate/pkg/exchange/hyperliquid"
)

func probe(label string, testnet bool, pk, mainAddr string) {
	fmt.Printf("--- %s ---\n", label)
	opts := []hyperliquid.ClientOption{}
	if mainAddr != "" {
		opts = append(opts, hyperliquid.WithMainAddress(mainAddr))
	}
	client, err := hyperliquid.NewClient(pk, testnet, opts...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := client.GetAccountInfo(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Total Balance: %s\n", account.TotalBalance)
	fmt.Printf("Available Balance: %s\n", account.AvailableBalance)

	positions, err := client.GetAllPositions(ctx)
	if err != nil {
		fmt.Printf("Positions error: %v\n", err)
		return
	}
	fmt.Printf("Open Positions: %d\n", len(positions))
	for _, p := range positions {
		fmt.Printf("  - %s: size=%s, entry=%s, unrealized_pnl=%s\n", p.Symbol, p.PositionAmt, p.EntryPrice, p.UnrealizedProfit)
	}
}

func main() {
	confkit.LoadDotenvOnce()

	pk := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
	if pk == "" {
		fmt.Println("HYPERLIQUID_PRIVATE_KEY not set in env/.env")
		os.Exit(1)
	}
	signer, err := hyperliquid.NewPrivateKeySigner(pk)
	if err != nil {
		fmt.Printf("decode private key error: %v\n", err)
		os.Exit(1)
	}
	apiWallet := strings.ToLower(signer.GetAddress())
	mainAddr := strings.ToLower(strings.TrimSpace(os.Getenv("HYPERLIQUID_MAIN_ADDRESS")))

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("API Wallet (from private key): %s\n", apiWallet)
	if mainAddr != "" {
		fmt.Printf("Main Account (HYPERLIQUID_MAIN_ADDRESS): %s\n", mainAddr)
	} else {
		fmt.Println("Main Account: (not set - using API wallet as main account)")
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	if mainAddr != "" && mainAddr != apiWallet {
		fmt.Println("⚠️  API WALLET MODE DETECTED")
		fmt.Println("Orders are signed by the API wallet on behalf of the main account.")
		fmt.Println("The API wallet must be approved under Settings → API of the main account,")
		fmt.Printf("using this address: %s\n", apiWallet)
		fmt.Println()
	}

	probe("TESTNET", true, pk, mainAddr)
	fmt.Println()
	probe("MAINNET", false, pk, mainAddr)
}
