package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Strategy selects which months feed the forecast.
type Strategy string

const (
	// StrategyLatest uses the most recent months that have data, however old.
	StrategyLatest Strategy = "latest"
	// StrategyRolling only considers expenses dated inside the last
	// WindowMonths calendar months before now.
	StrategyRolling Strategy = "rolling"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyLatest, "":
		return StrategyLatest, nil
	case StrategyRolling:
		return StrategyRolling, nil
	}
	return "", fmt.Errorf("unknown forecast strategy %q", s)
}

type ForecastPolicy struct {
	WindowMonths int
	MinMonths    int
	Strategy     Strategy
}

func DefaultForecastPolicy() ForecastPolicy {
	return ForecastPolicy{WindowMonths: 3, MinMonths: 1, Strategy: StrategyLatest}
}

func (p ForecastPolicy) Validate() error {
	var errs []error
	if p.WindowMonths < 1 {
		errs = append(errs, fmt.Errorf("forecast window must be at least 1 month, got %d", p.WindowMonths))
	}
	if p.MinMonths < 1 || p.MinMonths > p.WindowMonths {
		errs = append(errs, fmt.Errorf("forecast minimum months must be between 1 and %d, got %d", p.WindowMonths, p.MinMonths))
	}
	if p.Strategy != StrategyLatest && p.Strategy != StrategyRolling {
		errs = append(errs, fmt.Errorf("unknown forecast strategy %q", p.Strategy))
	}
	return errors.Join(errs...)
}

type Prediction struct {
	UserID          int64          `json:"user_id"`
	UserName        string         `json:"user_name"`
	NextMonth       core.YearMonth `json:"next_month"`
	MonthsAnalyzed  int            `json:"months_analyzed"`
	LastMonthsData  string         `json:"last_months_data"`
	PredictedAmount core.Money     `json:"predicted_amount"`
}

// PredictNextMonth forecasts each user's spending for the month after now as
// the mean of their selected monthly totals, rounded to the cent. Users with
// fewer than policy.MinMonths selected months are left out.
func PredictNextMonth(records []core.Expense, policy ForecastPolicy, now time.Time) []Prediction {
	if policy.Strategy == StrategyRolling {
		cutoff := core.DateOf(now).AddMonths(-policy.WindowMonths)
		kept := make([]core.Expense, 0, len(records))
		for _, r := range records {
			if r.Date.Compare(cutoff) >= 0 {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	next := core.YearMonthOf(now).Next()
	out := make([]Prediction, 0)
	for _, um := range groupMonthly(records) {
		months := um.Months
		if len(months) > policy.WindowMonths {
			months = months[len(months)-policy.WindowMonths:]
		}
		if len(months) == 0 || len(months) < policy.MinMonths {
			continue
		}

		var sum int64
		parts := make([]string, 0, len(months))
		for i := len(months) - 1; i >= 0; i-- {
			sum += months[i].Total.Cents
			parts = append(parts, months[i].Month.String()+": "+months[i].Total.String())
		}
		mean := decimal.New(sum, -2).Div(decimal.NewFromInt(int64(len(months))))

		out = append(out, Prediction{
			UserID:          um.UserID,
			UserName:        um.UserName,
			NextMonth:       next,
			MonthsAnalyzed:  len(months),
			LastMonthsData:  strings.Join(parts, ", "),
			PredictedAmount: core.MoneyFromDecimal(mean),
		})
	}
	return out
}
