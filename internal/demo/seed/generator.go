package seed

import (
	"math"
	"math/rand"
	"time"
)

// Sale is one synthetic row of the demo dataset. The mix of categorical,
// numeric, and temporal columns gives every chart kind something to bind.
type Sale struct {
	Region  string
	Product string
	Channel string
	Amount  float64
	Units   int
	SoldAt  time.Time
}

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Generate returns rowsPerDay sales for each of the last days days, oldest
// first.
func (g *Generator) Generate(days, rowsPerDay int) []Sale {
	end := g.now().Truncate(24 * time.Hour)
	sales := make([]Sale, 0, days*rowsPerDay)
	for day := days - 1; day >= 0; day-- {
		date := end.AddDate(0, 0, -day)
		for i := 0; i < rowsPerDay; i++ {
			sales = append(sales, g.nextSale(date))
		}
	}
	return sales
}

func (g *Generator) nextSale(date time.Time) Sale {
	product := pickOne(g.rnd, []string{"widget", "gadget", "gizmo", "doodad", "contraption"})
	units := g.rnd.Intn(9) + 1
	return Sale{
		Region:  pickOne(g.rnd, []string{"north", "south", "east", "west"}),
		Product: product,
		Channel: pickOne(g.rnd, []string{"online", "retail", "partner"}),
		Amount:  round2(float64(units) * g.unitPrice(product)),
		Units:   units,
		SoldAt:  date.Add(time.Duration(g.rnd.Intn(24*3600)) * time.Second),
	}
}

func (g *Generator) unitPrice(product string) float64 {
	base := map[string]float64{
		"widget":      19.99,
		"gadget":      34.50,
		"gizmo":       7.25,
		"doodad":      54.00,
		"contraption": 120.00,
	}[product]
	// up to 20% discount
	return base * (1 - g.rnd.Float64()*0.2)
}

func pickOne(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
