// Command console assembles an in-memory exchange, seeds it from a yaml
// configuration (or a built-in default) and walks through the core flows:
// pool creation, liquidity provision, token and native swaps. State tables
// are printed after each step so the reserve movements are visible.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm-go/cmd/console/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/ledger"
)

// --- VISUAL CONSTANTS ---
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Cyan  = "\033[36m"
	Red   = "\033[31m"
)

// header prints a styled section header.
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

// account derives a deterministic demo account.
func account(n byte) common.Address {
	var a common.Address
	a[19] = n
	a[0] = 0xde
	return a
}

func main() {
	configPath := flag.String("config", "", "path to console yaml config (optional)")
	flag.Parse()

	rootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fail := func(msg string, err error) {
		rootLogger.Error(msg, "error", err)
		fmt.Println(Red + "Fatal error occurred: " + err.Error() + Reset)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fail("Failed to load configuration", err)
		}
		cfg = loaded
	}

	var (
		owner    = account(1)
		supplier = account(2)
		trader   = account(3)
	)

	eng, err := engine.New(&engine.Config{
		Owner:       owner,
		OwnerFeeBps: cfg.OwnerFeeBps,
		Logger:      rootLogger.With("component", "engine"),
		Registerer:  prometheus.DefaultRegisterer,
	})
	if err != nil {
		fail("Failed to assemble engine", err)
	}
	rtr := eng.Router()

	faucet, err := config.ParseAmount(cfg.FaucetUnits)
	if err != nil {
		fail("Invalid faucet amount", err)
	}

	// Deploy tokens, fund the demo accounts and approve the router.
	header("TOKENS")
	tokens := make(map[string]*ledger.Token, len(cfg.Tokens))
	for _, tc := range cfg.Tokens {
		t, err := eng.DeployToken(tc.Name, tc.Symbol)
		if err != nil {
			fail("Failed to deploy token", err)
		}
		tokens[tc.Symbol] = t
		for _, holder := range []common.Address{owner, supplier, trader} {
			if err := t.Mint(holder, faucet); err != nil {
				fail("Failed to mint", err)
			}
			if err := t.Approve(holder, rtr.Address(), faucet); err != nil {
				fail("Failed to approve", err)
			}
		}
		fmt.Printf("%-6s %s\n", tc.Symbol, t.Asset())
	}

	// Create and seed the configured pools.
	header("POOLS")
	for _, pc := range cfg.Pools {
		tokenA, okA := tokens[pc.TokenA]
		tokenB, okB := tokens[pc.TokenB]
		if !okA || !okB {
			fail("Unknown pool token", fmt.Errorf("%s/%s", pc.TokenA, pc.TokenB))
		}
		if _, err := eng.CreatePool(owner, tokenA.Asset(), tokenB.Asset(), pc.FeeBps); err != nil {
			fail("Failed to create pool", err)
		}
		amountA, err := config.ParseAmount(pc.AmountA)
		if err != nil {
			fail("Invalid amount", err)
		}
		amountB, err := config.ParseAmount(pc.AmountB)
		if err != nil {
			fail("Invalid amount", err)
		}
		if _, _, _, err := rtr.AddLiquidity(supplier, tokenA.Asset(), tokenB.Asset(), amountA, amountB, nil, nil); err != nil {
			fail("Failed to add liquidity", err)
		}
	}
	before := eng.State()
	printState(before)

	// Swap along the first configured pool.
	if len(cfg.Pools) > 0 {
		header("SWAP")
		pc := cfg.Pools[0]
		path := []common.Address{tokens[pc.TokenA].Asset(), tokens[pc.TokenB].Asset()}
		amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) // one whole unit

		quoted, err := rtr.QuoteMultiHop(path, amountIn)
		if err != nil {
			fail("Quote failed", err)
		}
		fmt.Printf("quote: %s %s -> %s %s (before protocol fee)\n", amountIn, pc.TokenA, quoted, pc.TokenB)

		out, err := rtr.SwapExactInput(trader, path, amountIn, nil)
		if err != nil {
			fail("Swap failed", err)
		}
		fmt.Printf("swap:  %s %s -> %s %s\n", amountIn, pc.TokenA, out, pc.TokenB)
		fmt.Printf("fee recipient balance: %s %s\n",
			tokens[pc.TokenA].BalanceOf(rtr.FeeRecipient()), pc.TokenA)
	}

	// Wrap native coin into a pool and trade against it.
	if len(cfg.Tokens) > 0 {
		header("NATIVE")
		symbol := cfg.Tokens[0].Symbol
		token := tokens[symbol]
		nativeAmount := new(big.Int).Exp(big.NewInt(10), big.NewInt(19), nil)
		tokenAmount := new(big.Int).Mul(nativeAmount, big.NewInt(3))

		if err := eng.NativeLedger().Mint(supplier, faucet); err != nil {
			fail("Failed to mint native", err)
		}
		if err := eng.NativeLedger().Mint(trader, faucet); err != nil {
			fail("Failed to mint native", err)
		}
		wrapped, _ := eng.Book().Get(eng.NativeAsset())
		for _, holder := range []common.Address{supplier, trader} {
			if err := wrapped.Approve(holder, rtr.Address(), faucet); err != nil {
				fail("Failed to approve wrapped", err)
			}
		}

		if _, err := eng.CreatePool(owner, token.Asset(), eng.NativeAsset(), 2000); err != nil {
			fail("Failed to create native pool", err)
		}
		if _, _, _, err := rtr.AddLiquidityNative(supplier, token.Asset(), tokenAmount, nativeAmount, nil, nil); err != nil {
			fail("Failed to add native liquidity", err)
		}

		oneNative := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
		out, err := rtr.SwapExactNativeInput(trader, []common.Address{eng.NativeAsset(), token.Asset()}, oneNative, nil)
		if err != nil {
			fail("Native swap failed", err)
		}
		fmt.Printf("swap: %s native -> %s %s\n", oneNative, out, symbol)
	}

	header("STATE DIFF")
	after := eng.State()
	diff := engine.Diff(before, after)
	for _, v := range diff.Updates {
		fmt.Printf("updated %s reserves=(%s, %s) shares=%s\n", v.Address, v.Reserve0, v.Reserve1, v.TotalShares)
	}
	for _, v := range diff.Additions {
		fmt.Printf("added   %s reserves=(%s, %s)\n", v.Address, v.Reserve0, v.Reserve1)
	}

	header("FINAL STATE")
	printState(after)
}

// printState renders the pool table of a snapshot.
func printState(s *engine.State) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tTOKEN0\tTOKEN1\tRESERVE0\tRESERVE1\tFEE(bps)\tSHARES")
	for _, v := range s.Pools {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			v.Address, v.Token0, v.Token1, v.Reserve0, v.Reserve1, v.FeeRateBps, v.TotalShares)
	}
	w.Flush()
	fmt.Printf("protocol fee: %d bps -> %s\n", s.ProtocolFeeBps, s.FeeRecipient)
}
