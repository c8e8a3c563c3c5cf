package extraction

import (
	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// ForecastConsumer zeroes out forecast quantity already consumed by sales
// orders. Strategies operate on the extracted demand list and return the
// (possibly shortened) result.
type ForecastConsumer func(demands []*entities.Demand) []*entities.Demand

// NewForecastConsumer builds the consumer for the selected mode.
//
// Backward consumption nets each sales order against the nearest forecast at
// or before its date; forward consumption nets against the nearest forecast
// at or after it. Forecast demands reduced to zero are removed.
func NewForecastConsumer(mode entities.ForecastConsumptionMode) ForecastConsumer {
	switch mode {
	case entities.ForecastConsumeBackward:
		return func(demands []*entities.Demand) []*entities.Demand {
			return consume(demands, true)
		}
	case entities.ForecastConsumeForward:
		return func(demands []*entities.Demand) []*entities.Demand {
			return consume(demands, false)
		}
	default:
		return nil
	}
}

func consume(demands []*entities.Demand, backward bool) []*entities.Demand {
	var forecasts []*entities.Demand
	for _, d := range demands {
		if d.Kind == entities.ForecastDemand {
			forecasts = append(forecasts, d)
		}
	}
	if len(forecasts) == 0 {
		return demands
	}

	for _, d := range demands {
		if d.Kind != entities.SalesOrderDemand {
			continue
		}
		remaining := d.Quantity
		for _, fc := range forecasts {
			if !remaining.IsPositive() || !fc.Quantity.IsPositive() {
				continue
			}
			if backward && fc.NeedDate.After(d.NeedDate) {
				continue
			}
			if !backward && fc.NeedDate.Before(d.NeedDate) {
				continue
			}
			take := decimal.Min(remaining, fc.Quantity)
			fc.Quantity = fc.Quantity.Sub(take)
			remaining = remaining.Sub(take)
		}
	}

	kept := demands[:0]
	for _, d := range demands {
		if d.Kind == entities.ForecastDemand && !d.Quantity.IsPositive() {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
