package subscription

import "strings"

type BillingPeriod string

const (
	Monthly BillingPeriod = "monthly"
	Yearly  BillingPeriod = "yearly"
)

// Plan is a catalogue entry shown on the pricing screen.
type Plan struct {
	ID        PlanType `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Currency  string   `json:"currency"`
	Features  []string `json:"features"`
	IsPopular bool     `json:"isPopular,omitempty"`
	IsPremium bool     `json:"isPremium,omitempty"`
}

var Plans = []Plan{
	{
		ID:       StarterPlan,
		Name:     "Starter",
		Price:    0,
		Currency: "RUB",
		Features: []string{
			"5 документов в месяц",
			"Базовая аналитика",
			"1 интеграция",
			"Email поддержка",
		},
	},
	{
		ID:       BusinessProPlan,
		Name:     "Business Pro",
		Price:    139,
		Currency: "USD",
		Features: []string{
			"Неограниченно документов",
			"Полная аналитика и отчеты",
			"Все интеграции",
			"AI генерация контента",
			"Приоритетная поддержка",
			"Автоматизация задач",
			"Командная работа (до 5 пользователей)",
		},
		IsPopular: true,
	},
	{
		ID:       EnterprisePlan,
		Name:     "Enterprise",
		Price:    99,
		Currency: "USD",
		Features: []string{
			"Все из Business Pro",
			"Неограниченное количество пользователей",
			"Персональный менеджер",
			"Индивидуальные интеграции",
			"SLA 99.9%",
			"Расширенная безопасность",
			"Обучение команды",
		},
		IsPremium: true,
	},
}

func GetPlan(id PlanType) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

func ParsePlan(s string) (PlanType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "starter", "free":
		return StarterPlan, true
	case "pro", "business_pro", "business-pro", "businesspro":
		return BusinessProPlan, true
	case "enterprise":
		return EnterprisePlan, true
	}
	return "", false
}

// YearlyPrice applies the 20% annual discount, rounded down.
func YearlyPrice(monthly float64) float64 {
	return float64(int64(monthly * 12 * 0.8))
}

func (p Plan) PriceFor(period BillingPeriod) float64 {
	if period == Yearly && p.Price > 0 {
		return YearlyPrice(p.Price)
	}
	return p.Price
}

// PriceCatalog maps Stripe price ids to plans in both directions.
type PriceCatalog struct {
	byPrice map[string]PlanType
	byPlan  map[PlanType]map[BillingPeriod]string
}

func NewPriceCatalog() *PriceCatalog {
	return &PriceCatalog{
		byPrice: make(map[string]PlanType),
		byPlan:  make(map[PlanType]map[BillingPeriod]string),
	}
}

// Register binds a Stripe price id; empty ids are ignored so unset
// environment variables do not create bogus mappings.
func (c *PriceCatalog) Register(plan PlanType, period BillingPeriod, priceID string) *PriceCatalog {
	if priceID == "" {
		return c
	}
	c.byPrice[priceID] = plan
	if c.byPlan[plan] == nil {
		c.byPlan[plan] = make(map[BillingPeriod]string)
	}
	c.byPlan[plan][period] = priceID
	return c
}

// DeterminePlanType resolves a Stripe price id. Unknown prices fall back to Starter.
func (c *PriceCatalog) DeterminePlanType(stripePriceID string) PlanType {
	if plan, ok := c.byPrice[stripePriceID]; ok {
		return plan
	}
	return StarterPlan
}

func (c *PriceCatalog) PriceID(plan PlanType, period BillingPeriod) (string, bool) {
	id, ok := c.byPlan[plan][period]
	return id, ok
}
