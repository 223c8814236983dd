package notify

import (
	"fmt"

	"CrossWatch/internal/domain/models"
)

const (
	TestSubject = "✅ EMA Alert System Test"
	TestBody    = "Your EMA Alert System is working correctly 🚀"
)

// CrossoverSubject is the subject line for a crossover notification.
func CrossoverSubject(symbol string) string {
	return fmt.Sprintf("%s EMA Crossover Alert", symbol)
}

// CrossoverBody renders the crossover notification text.
func CrossoverBody(signal models.Signal, symbol, timeframe string, fast, slow int) string {
	return fmt.Sprintf("%s crossover detected\n\nSymbol: %s\nTimeframe: %s\nFast EMA: %d\nSlow EMA: %d",
		signal, symbol, timeframe, fast, slow)
}
