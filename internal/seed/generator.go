// Package seed generates stock documents and random transfer requests for
// local runs and load tests.
package seed

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/example/trading-services/internal/models"
)

var (
	sectors = []string{"Technology", "Finance", "Healthcare", "Consumer", "Energy", "Industrial", "Materials", "Utilities", "Real Estate", "Telecom"}

	// Well-known records present in every generated document.
	fixed = []models.Stock{
		{ID: "AAPL", Name: "Apple Inc.", Price: 150.25, Owned: "user1", Sector: "Technology", Volume: 1000000, MarketCap: 2500000000000},
		{ID: "MSFT", Name: "Microsoft Corporation", Price: 245.75, Owned: "user2", Sector: "Technology", Volume: 800000, MarketCap: 2100000000000},
		{ID: "GOOGL", Name: "Alphabet Inc.", Price: 2800.10, Owned: "user3", Sector: "Technology", Volume: 600000, MarketCap: 1900000000000},
	}
)

type Generator struct {
	rng   *rand.Rand
	users []string
}

// New returns a generator drawing owners from user1..userN.
func New(seed int64, users int) *Generator {
	if users <= 0 {
		users = 10
	}
	names := make([]string, users)
	for i := range names {
		names[i] = fmt.Sprintf("user%d", i+1)
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), users: names}
}

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func pick[T any](rng *rand.Rand, xs []T) T { return xs[rng.Intn(len(xs))] }

func ticker(i int) string { return fmt.Sprintf("STOCK%04d", i) }

// Stocks returns the fixed records followed by count random ones.
func (g *Generator) Stocks(count int) []models.Stock {
	out := make([]models.Stock, 0, len(fixed)+count)
	out = append(out, fixed...)
	for i := 0; i < count; i++ {
		out = append(out, models.Stock{
			ID:        ticker(i),
			Name:      fmt.Sprintf("Stock %d Corporation", i),
			Price:     round(g.rng.Float64()*100, 2),
			Owned:     pick(g.rng, g.users),
			Sector:    pick(g.rng, sectors),
			Volume:    g.rng.Int63n(2000000),
			MarketCap: g.rng.Int63n(1000000000000),
		})
	}
	return out
}

// Transfer returns a random request against the first count generated
// tickers. The source owner is a guess, so some requests will be rejected.
func (g *Generator) Transfer(count int) models.TransferRequest {
	id := pick(g.rng, fixed).ID
	if count > 0 && g.rng.Intn(4) != 0 {
		id = ticker(g.rng.Intn(count))
	}
	from := pick(g.rng, g.users)
	to := pick(g.rng, g.users)
	for len(g.users) > 1 && to == from {
		to = pick(g.rng, g.users)
	}
	return models.TransferRequest{RecordID: id, FromOwner: from, ToOwner: to}
}
