// Package category owns the single category table used by ledgers, budgets,
// reports and the assistant. Display names map to storage buckets here and nowhere else.
package category

import (
	"sort"
	"strings"
)

// Category is one ledger bucket together with its presentation and matching hints
type Category struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	EnglishName string   `json:"english_name"`
	Income      bool     `json:"is_income"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Keywords    []string `json:"-"`
}

// Expense buckets
const (
	OfficeSupplies       = "office_supplies"
	Rent                 = "rent"
	Utilities            = "utilities"
	Marketing            = "marketing"
	Travel               = "travel"
	Meals                = "meals"
	Equipment            = "equipment"
	Software             = "software"
	ProfessionalServices = "professional_services"
	Insurance            = "insurance"
	Salary               = "salary"
	Tax                  = "tax"
	Other                = "other"
)

// Income buckets
const (
	Sales       = "sales"
	Service     = "service"
	Interest    = "interest"
	OtherIncome = "other_income"
)

// table order is significant: it is the sort order of seeded budget categories
// and breaks ties during classification.
var table = []Category{
	{Key: OfficeSupplies, Name: "辦公用品", EnglishName: "Office Supplies", Icon: "📎", Color: "#3B82F6",
		Keywords: []string{"辦公", "文具", "影印", "紙", "碳粉", "office", "stationery", "printer", "paper", "toner"}},
	{Key: Rent, Name: "租金", EnglishName: "Rent", Icon: "🏢", Color: "#8B5CF6",
		Keywords: []string{"租金", "房租", "租賃", "rent", "lease"}},
	{Key: Utilities, Name: "水電費", EnglishName: "Utilities", Icon: "💡", Color: "#F59E0B",
		Keywords: []string{"水費", "電費", "瓦斯", "網路", "電信", "utility", "utilities", "electricity", "water", "internet", "telecom"}},
	{Key: Marketing, Name: "行銷廣告", EnglishName: "Marketing", Icon: "📣", Color: "#EC4899",
		Keywords: []string{"廣告", "行銷", "宣傳", "推廣", "marketing", "advertising", "ads", "promotion", "campaign"}},
	{Key: Travel, Name: "差旅費", EnglishName: "Travel", Icon: "✈️", Color: "#06B6D4",
		Keywords: []string{"差旅", "交通", "高鐵", "機票", "計程車", "停車", "住宿", "travel", "taxi", "flight", "hotel", "parking", "train"}},
	{Key: Meals, Name: "餐飲費", EnglishName: "Meals", Icon: "🍱", Color: "#F97316",
		Keywords: []string{"餐", "午餐", "晚餐", "便當", "咖啡", "聚餐", "meal", "lunch", "dinner", "coffee", "restaurant"}},
	{Key: Equipment, Name: "設備", EnglishName: "Equipment", Icon: "🖥️", Color: "#6366F1",
		Keywords: []string{"設備", "電腦", "筆電", "螢幕", "機器", "equipment", "computer", "laptop", "monitor", "hardware"}},
	{Key: Software, Name: "軟體訂閱", EnglishName: "Software", Icon: "💾", Color: "#14B8A6",
		Keywords: []string{"軟體", "訂閱", "雲端", "授權", "software", "subscription", "saas", "license", "cloud"}},
	{Key: ProfessionalServices, Name: "專業服務", EnglishName: "Professional Services", Icon: "⚖️", Color: "#64748B",
		Keywords: []string{"會計", "律師", "顧問", "記帳", "法律", "accounting", "legal", "lawyer", "consultant", "audit"}},
	{Key: Insurance, Name: "保險", EnglishName: "Insurance", Icon: "🛡️", Color: "#22C55E",
		Keywords: []string{"保險", "勞保", "健保", "保費", "insurance", "premium"}},
	{Key: Salary, Name: "薪資", EnglishName: "Salary", Icon: "👥", Color: "#EF4444",
		Keywords: []string{"薪資", "薪水", "獎金", "工讀", "salary", "payroll", "wage", "bonus"}},
	{Key: Tax, Name: "稅費", EnglishName: "Taxes", Icon: "🧾", Color: "#A855F7",
		Keywords: []string{"稅", "營業稅", "規費", "tax", "vat", "duty"}},
	{Key: Other, Name: "其他", EnglishName: "Other", Icon: "📦", Color: "#9CA3AF"},

	{Key: Sales, Name: "銷售收入", EnglishName: "Sales", Income: true, Icon: "🛒", Color: "#10B981",
		Keywords: []string{"銷售", "商品", "貨款", "訂單", "sales", "sale", "product", "order"}},
	{Key: Service, Name: "服務收入", EnglishName: "Service", Income: true, Icon: "🛠️", Color: "#0EA5E9",
		Keywords: []string{"服務", "設計", "專案", "顧問費", "維護", "service", "design", "project", "maintenance", "consulting"}},
	{Key: Interest, Name: "利息收入", EnglishName: "Interest", Income: true, Icon: "🏦", Color: "#84CC16",
		Keywords: []string{"利息", "存款", "股利", "interest", "dividend", "deposit"}},
	{Key: OtherIncome, Name: "其他收入", EnglishName: "Other Income", Income: true, Icon: "💰", Color: "#EAB308",
		Keywords: []string{"補助", "退款", "獎勵", "subsidy", "refund", "grant", "rebate"}},
}

var (
	byKey  = make(map[string]Category, len(table))
	byName = make(map[string]Category, len(table)*3)
)

func init() {
	for _, c := range table {
		byKey[c.Key] = c
		byName[c.Name] = c
		byName[strings.ToLower(c.EnglishName)] = c
		byName[c.Key] = c
	}
}

// All returns every category in table order
func All() []Category {
	out := make([]Category, len(table))
	copy(out, table)
	return out
}

// ExpenseKeys returns the storage keys valid for expense rows
func ExpenseKeys() []string {
	return keys(false)
}

// IncomeKeys returns the storage keys valid for income rows
func IncomeKeys() []string {
	return keys(true)
}

func keys(income bool) []string {
	var out []string
	for _, c := range table {
		if c.Income == income {
			out = append(out, c.Key)
		}
	}
	return out
}

// ByKey looks a category up by its storage key
func ByKey(key string) (Category, bool) {
	c, ok := byKey[key]
	return c, ok
}

// Resolve maps a display name, English name or key to its category.
func Resolve(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	if c, ok := byName[name]; ok {
		return c, true
	}
	c, ok := byName[strings.ToLower(name)]
	return c, ok
}

// IsExpense reports whether key is a valid expense bucket
func IsExpense(key string) bool {
	c, ok := byKey[key]
	return ok && !c.Income
}

// IsIncome reports whether key is a valid income bucket
func IsIncome(key string) bool {
	c, ok := byKey[key]
	return ok && c.Income
}

// DisplayName returns the display name for key, or key itself when unknown
func DisplayName(key string) string {
	if c, ok := byKey[key]; ok {
		return c.Name
	}
	return key
}

// Match is one classification candidate
type Match struct {
	Category Category
	Hits     int
	Matched  []string
}

// Classify ranks categories of the requested kind by keyword hits in text.
// Ties keep table order. Categories without any hit are omitted.
func Classify(text string, income bool) []Match {
	text = strings.ToLower(text)
	var matches []Match
	for _, c := range table {
		if c.Income != income {
			continue
		}
		var hit []string
		for _, kw := range c.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hit = append(hit, kw)
			}
		}
		if len(hit) > 0 {
			matches = append(matches, Match{Category: c, Hits: len(hit), Matched: hit})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Hits > matches[j].Hits
	})
	return matches
}
