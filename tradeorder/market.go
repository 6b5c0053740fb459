package tradeorder

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultSymbols are the instruments seeded by init-schema.
var DefaultSymbols = []string{"NVDA", "JPM", "NFLX", "GOOGL", "DIS", "MSFT", "AAPL"}

// DefaultSeedPrice is the price every seeded instrument starts at.
const DefaultSeedPrice = "100.00"

// Market is the reference data a workload needs: at least one instrument and one account.
type Market struct {
	Instruments []Instrument
	Accounts    []Account
}

// DefaultMarket builds the seed market with DefaultSymbols at DefaultSeedPrice and numAccounts accounts
// numbered ACC-000001 upward.
func DefaultMarket(numAccounts int) Market {
	price := decimal.RequireFromString(DefaultSeedPrice)

	instruments := make([]Instrument, 0, len(DefaultSymbols))
	for _, symbol := range DefaultSymbols {
		instruments = append(instruments, Instrument{Symbol: symbol, CurrentPrice: price})
	}

	accounts := make([]Account, 0, numAccounts)
	for i := 1; i <= numAccounts; i++ {
		accounts = append(accounts, Account{AccountNbr: fmt.Sprintf("ACC-%06d", i)})
	}

	return Market{Instruments: instruments, Accounts: accounts}
}
