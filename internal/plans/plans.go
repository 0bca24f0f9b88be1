// Package plans holds the subscription tariffs on sale.
package plans

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrUnknownPlan = fmt.Errorf("unknown plan: %w", types.ErrValidation)

type Plan struct {
	ID       types.PlanID
	Title    string
	Price    decimal.Decimal
	Currency string
	Period   time.Duration
}

// Days is the plan period in whole days.
func (p Plan) Days() int {
	return int(p.Period / (24 * time.Hour))
}

type Catalog struct {
	order []types.PlanID
	plans map[types.PlanID]Plan
}

func Default() *Catalog {
	return newCatalog([]Plan{
		{ID: types.PlanBasic, Title: "Basic", Price: decimal.RequireFromString("299.00"), Currency: types.CurrencyRUB, Period: 30 * 24 * time.Hour},
		{ID: types.PlanPro, Title: "Pro", Price: decimal.RequireFromString("799.00"), Currency: types.CurrencyRUB, Period: 90 * 24 * time.Hour},
	})
}

func newCatalog(list []Plan) *Catalog {
	c := &Catalog{plans: make(map[types.PlanID]Plan, len(list))}
	for _, p := range list {
		c.order = append(c.order, p.ID)
		c.plans[p.ID] = p
	}
	return c
}

func (c *Catalog) Lookup(id types.PlanID) (Plan, error) {
	p, ok := c.plans[types.PlanID(strings.ToLower(strings.TrimSpace(string(id))))]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// All returns the plans in display order.
func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

type fileOverride struct {
	Title      string `yaml:"title"`
	Price      string `yaml:"price"`
	PeriodDays int    `yaml:"period_days"`
}

type fileFormat struct {
	Plans map[string]fileOverride `yaml:"plans"`
}

// LoadFile applies overrides from a YAML file to the default catalog.
// Only known plan ids may be overridden. An empty path returns the defaults.
func LoadFile(path string) (*Catalog, error) {
	c := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plans file %q: %w", path, err)
	}
	defer f.Close()

	var ff fileFormat
	if err := yaml.NewDecoder(f).Decode(&ff); err != nil {
		return nil, fmt.Errorf("decode plans file %q: %w", path, err)
	}
	if err := c.apply(ff); err != nil {
		return nil, fmt.Errorf("plans file %q: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) apply(ff fileFormat) error {
	for rawID, o := range ff.Plans {
		id := types.PlanID(strings.ToLower(strings.TrimSpace(rawID)))
		p, ok := c.plans[id]
		if !ok {
			return fmt.Errorf("%q: %w", rawID, ErrUnknownPlan)
		}
		if o.Title != "" {
			p.Title = o.Title
		}
		if o.Price != "" {
			price, err := decimal.NewFromString(o.Price)
			if err != nil {
				return fmt.Errorf("%q: price: %w", rawID, err)
			}
			if !price.IsPositive() {
				return fmt.Errorf("%q: price must be positive", rawID)
			}
			p.Price = price
		}
		if o.PeriodDays < 0 {
			return fmt.Errorf("%q: period_days must be positive", rawID)
		}
		if o.PeriodDays > 0 {
			p.Period = time.Duration(o.PeriodDays) * 24 * time.Hour
		}
		c.plans[id] = p
	}
	return nil
}
