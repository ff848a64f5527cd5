package phantom

import "fmt"

// kpiBuilder produces one KPI measure over the scenario schema.
type kpiBuilder func(s *Schema) *Measure

func sumOf(table, column string) string {
	return fmt.Sprintf("SUM(%s)", columnRef(table, column))
}

func avgOf(table, column string) string {
	return fmt.Sprintf("AVERAGE(%s)", columnRef(table, column))
}

func distinctOf(table, column string) string {
	return fmt.Sprintf("DISTINCTCOUNT(%s)", columnRef(table, column))
}

func rowsOf(table string) string {
	return fmt.Sprintf("COUNTROWS(%s)", quoteTable(table))
}

func divide(numerator, denominator string) string {
	return fmt.Sprintf("DIVIDE(%s, %s)", numerator, denominator)
}

// growth returns DIVIDE(current - previous, previous).
func growth(current, previous string) string {
	return divide(current+" - "+previous, previous)
}

// kpi returns builder of a measure on the fact table.
func kpi(name string, format FormatCategory, expr func(fact string) string) kpiBuilder {
	return func(s *Schema) *Measure {
		return &Measure{
			Name:          name,
			Expression:    expr(s.FactTable().Name),
			FormatString:  format.FormatString(),
			DisplayFolder: folderKPI,
		}
	}
}

// kpiCatalog ordered KPI measures per scenario, always included for the active scenario.
var kpiCatalog = map[Scenario][]kpiBuilder{
	ScenarioRetail: {
		kpi("Margin %", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Profit"), sumOf(f, "Revenue"))
		}),
		kpi("YoY Growth", FormatPercent, func(f string) string {
			return growth(sumOf(f, "Revenue"), sumOf(f, "RevenuePY"))
		}),
		kpi("Revenue per Store", FormatCurrency, func(f string) string {
			return divide(sumOf(f, "Revenue"), distinctOf("Stores", "StoreID"))
		}),
		kpi("Avg Order Value", FormatCurrency, func(f string) string {
			return divide(sumOf(f, "Revenue"), distinctOf(f, "OrderID"))
		}),
	},
	ScenarioSaaS: {
		kpi("Churn Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Churned"), distinctOf(f, "CustomerID"))
		}),
		kpi("ARR", FormatCurrency, func(f string) string {
			return sumOf(f, "MRR") + " * 12"
		}),
		kpi("Customer Count", FormatNumber, func(f string) string {
			return distinctOf(f, "CustomerID")
		}),
		kpi("ARPU", FormatCurrency, func(f string) string {
			return divide(sumOf(f, "MRR"), distinctOf(f, "CustomerID"))
		}),
	},
	ScenarioHR: {
		kpi("Headcount", FormatNumber, func(f string) string {
			return distinctOf(f, "EmployeeID")
		}),
		kpi("Attrition Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Attrition"), distinctOf(f, "EmployeeID"))
		}),
		kpi("Average Tenure", FormatDecimal, func(f string) string {
			return avgOf(f, "Tenure")
		}),
		kpi("Offer Acceptance Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "OffersAccepted"), sumOf(f, "Offers"))
		}),
	},
	ScenarioLogistics: {
		kpi("On-Time Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "OnTime"), rowsOf(f))
		}),
		kpi("Avg Transit Days", FormatDecimal, func(f string) string {
			return avgOf(f, "TransitDays")
		}),
		kpi("Cost per Shipment", FormatCurrency, func(f string) string {
			return divide(sumOf(f, "Cost"), rowsOf(f))
		}),
		kpi("Shipment Count", FormatNumber, func(f string) string {
			return rowsOf(f)
		}),
	},
	ScenarioFinance: {
		kpi("Net Income", FormatCurrency, func(f string) string {
			return sumOf(f, "Revenue") + " - " + sumOf(f, "COGS") + " - " + sumOf(f, "Opex")
		}),
		kpi("Gross Margin %", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Revenue")+" - "+sumOf(f, "COGS"), sumOf(f, "Revenue"))
		}),
		kpi("Budget Variance %", FormatPercent, func(f string) string {
			return growth(sumOf(f, "Amount"), sumOf(f, "Budget"))
		}),
		kpi("Opex Ratio", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Opex"), sumOf(f, "Revenue"))
		}),
	},
	ScenarioPortfolio: {
		kpi("Total Return %", FormatPercent, func(f string) string {
			return growth(sumOf(f, "MarketValue"), sumOf(f, "CostBasis"))
		}),
		kpi("Portfolio Value", FormatCurrency, func(f string) string {
			return sumOf(f, "MarketValue")
		}),
		kpi("Unrealized Gain", FormatCurrency, func(f string) string {
			return sumOf(f, "MarketValue") + " - " + sumOf(f, "CostBasis")
		}),
		kpi("Position Count", FormatNumber, func(f string) string {
			return distinctOf(f, "Ticker")
		}),
	},
	ScenarioSocial: {
		kpi("Engagement Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Engagements"), sumOf(f, "Impressions"))
		}),
		kpi("Average Reach", FormatNumber, func(f string) string {
			return avgOf(f, "Reach")
		}),
		kpi("Click-Through Rate", FormatPercent, func(f string) string {
			return divide(sumOf(f, "Clicks"), sumOf(f, "Impressions"))
		}),
		kpi("Follower Growth", FormatPercent, func(f string) string {
			return growth(sumOf(f, "Followers"), sumOf(f, "FollowersPY"))
		}),
	},
}

// GenerateKPIMeasures returns the KPI catalog of the scenario.
func GenerateKPIMeasures(scenario Scenario) []*Measure {
	schema, err := SchemaFor(scenario)
	if err != nil {
		return nil
	}

	builders := kpiCatalog[scenario]
	measures := make([]*Measure, 0, len(builders))
	for _, build := range builders {
		measures = append(measures, build(schema))
	}

	return measures
}
