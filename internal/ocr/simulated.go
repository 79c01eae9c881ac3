package ocr

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"bookkeeping/internal/category"
)

type sampleVendor struct {
	name     string
	category string
	items    []string
}

var sampleVendors = []sampleVendor{
	{"全家便利商店", category.Meals, []string{"咖啡", "便當", "礦泉水"}},
	{"誠品書店", category.OfficeSupplies, []string{"筆記本", "原子筆", "資料夾"}},
	{"台灣大車隊", category.Travel, []string{"計程車資"}},
	{"燦坤3C", category.Equipment, []string{"滑鼠", "鍵盤", "螢幕線"}},
	{"中華電信", category.Utilities, []string{"網路月租費"}},
	{"Google Workspace", category.Software, []string{"Business Starter 訂閱"}},
}

// SimulatedScanner returns plausible random receipts without reading the image.
// It stands in until a real OCR engine is configured.
type SimulatedScanner struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSimulatedScanner seeds the generator; equal seeds produce equal receipts
func NewSimulatedScanner(seed uint64) *SimulatedScanner {
	return &SimulatedScanner{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (s *SimulatedScanner) Scan(ctx context.Context, img Image) (*Receipt, error) {
	if len(img.Data) == 0 {
		return nil, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := sampleVendors[s.rnd.IntN(len(sampleVendors))]
	n := 1 + s.rnd.IntN(len(v.items))

	items := make([]LineItem, 0, n)
	var subtotal float64
	for i := 0; i < n; i++ {
		qty := 1 + s.rnd.IntN(3)
		price := float64(20 + s.rnd.IntN(480))
		items = append(items, LineItem{
			Description: v.items[i],
			Quantity:    qty,
			UnitPrice:   price,
			Amount:      price * float64(qty),
		})
		subtotal += price * float64(qty)
	}
	tax := math.Round(subtotal*0.05*100) / 100

	return &Receipt{
		Vendor:        v.name,
		Date:          s.now().AddDate(0, 0, -s.rnd.IntN(7)).Format("2006-01-02"),
		InvoiceNumber: fmt.Sprintf("%c%c-%08d", 'A'+rune(s.rnd.IntN(26)), 'A'+rune(s.rnd.IntN(26)), s.rnd.IntN(100000000)),
		Amount:        subtotal,
		TaxAmount:     tax,
		TotalAmount:   subtotal + tax,
		Category:      v.category,
		Items:         items,
		Confidence:    float64(75 + s.rnd.IntN(21)),
		Engine:        "simulated",
	}, nil
}
