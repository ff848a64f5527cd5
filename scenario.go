package phantom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownScenario returned when scenario name is not one of the supported domains.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario selects the demo dataset domain.
type Scenario string

const (
	ScenarioRetail    Scenario = "Retail"
	ScenarioSaaS      Scenario = "SaaS"
	ScenarioHR        Scenario = "HR"
	ScenarioLogistics Scenario = "Logistics"
	ScenarioFinance   Scenario = "Finance"
	ScenarioPortfolio Scenario = "Portfolio"
	ScenarioSocial    Scenario = "Social"
)

// Scenarios returns all supported scenarios in display order.
func Scenarios() []Scenario {
	return []Scenario{
		ScenarioRetail,
		ScenarioSaaS,
		ScenarioHR,
		ScenarioLogistics,
		ScenarioFinance,
		ScenarioPortfolio,
		ScenarioSocial,
	}
}

// ParseScenario returns scenario by case-insensitive name.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if strings.EqualFold(string(s), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// ProjectName returns the PBIP project name for the scenario.
func (s Scenario) ProjectName() string {
	return "Phantom" + string(s)
}

// DataType physical type of a column.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeInt64    DataType = "int64"
	DataTypeDouble   DataType = "double"
	DataTypeDateTime DataType = "dateTime"
	DataTypeBoolean  DataType = "boolean"
)

// IsNumeric reports whether the type holds numbers.
func (t DataType) IsNumeric() bool {
	return t == DataTypeInt64 || t == DataTypeDouble
}

// FormatCategory semantic category of a numeric value.
type FormatCategory int

const (
	FormatNumber FormatCategory = iota
	FormatCurrency
	FormatPercent
	FormatDecimal
)

const (
	formatStringNumber   = "#,##0"
	formatStringCurrency = "$#,##0"
	formatStringPercent  = "0.0%"
	formatStringDecimal  = "#,##0.0"
)

// FormatString returns the Power BI format string of the category.
func (c FormatCategory) FormatString() string {
	switch c {
	case FormatCurrency:
		return formatStringCurrency
	case FormatPercent:
		return formatStringPercent
	case FormatDecimal:
		return formatStringDecimal
	default:
		return formatStringNumber
	}
}

// Column physical column of a table.
type Column struct {
	Name     string         `json:"name"`
	DataType DataType       `json:"dataType"`
	Format   FormatCategory `json:"-"`
}

// Table physical table of the scenario schema.
type Table struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

// Column returns column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// MetricRef maps a metric key to a physical column.
type MetricRef struct {
	Key    string
	Table  string
	Column string
	Format FormatCategory
}

// Relationship many-to-one relationship between tables.
type Relationship struct {
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

// Schema physical table/column schema of a scenario.
// The first table is the primary fact table.
type Schema struct {
	Scenario           Scenario        `json:"scenario"`
	Tables             []*Table        `json:"tables"`
	Relationships      []*Relationship `json:"relationships,omitempty"`
	PrimaryDimension   string          `json:"primaryDimension"`
	SecondaryDimension string          `json:"secondaryDimension"`
	TimeDimension      string          `json:"timeDimension"`
	PrimaryMetric      string          `json:"primaryMetric"`
	SecondaryMetric    string          `json:"secondaryMetric"`

	metrics []*MetricRef
}

// FactTable returns the primary fact table.
func (s *Schema) FactTable() *Table {
	return s.Tables[0]
}

// Table returns table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// ColumnOf returns column of a table, false for nil schema or unknown names.
func (s *Schema) ColumnOf(table, column string) (*Column, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.Table(table)
	if !ok {
		return nil, false
	}
	return t.Column(column)
}

// Metrics returns the metric catalog in declaration order.
func (s *Schema) Metrics() []*MetricRef {
	return s.metrics
}

// ResolveMetric returns physical column of metric, lookup is case-insensitive.
func (s *Schema) ResolveMetric(metric string) (*MetricRef, bool) {
	for _, m := range s.metrics {
		if strings.EqualFold(m.Key, metric) {
			return m, true
		}
	}
	return nil, false
}

// ResolveDimension returns the table and column of a categorical or time dimension.
// Tables are searched in schema order so the fact table wins on ambiguity.
func (s *Schema) ResolveDimension(name string) (*Table, *Column, bool) {
	for _, t := range s.Tables {
		if c, ok := t.Column(name); ok {
			return t, c, true
		}
	}
	return nil, nil, false
}

// FormatOf returns format category of a metric, guessing by name for unknown ones.
func (s *Schema) FormatOf(metric string) FormatCategory {
	if m, ok := s.ResolveMetric(metric); ok {
		return m.Format
	}
	return guessFormat(metric)
}

var (
	currencyHints = []string{
		"revenue", "profit", "sales", "cost", "price", "salary", "amount", "spend",
		"budget", "income", "expense", "opex", "cogs", "value", "mrr", "arr", "ltv", "cac", "dividend",
	}
	percentHints = []string{"rate", "pct", "percent", "margin", "ratio", "share", "growth", "return", "churn"}
)

func guessFormat(metric string) FormatCategory {
	m := strings.ToLower(metric)
	for _, hint := range percentHints {
		if strings.Contains(m, hint) {
			return FormatPercent
		}
	}
	for _, hint := range currencyHints {
		if strings.Contains(m, hint) {
			return FormatCurrency
		}
	}
	return FormatNumber
}

// SchemaFor returns the schema of the scenario.
// Every call returns a fresh value so callers may not corrupt the catalog.
func SchemaFor(scenario Scenario) (*Schema, error) {
	build, ok := schemaCatalog[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
	}
	return build(), nil
}

func text(name string) *Column  { return &Column{Name: name, DataType: DataTypeString} }
func date(name string) *Column  { return &Column{Name: name, DataType: DataTypeDateTime} }
func whole(name string) *Column { return &Column{Name: name, DataType: DataTypeInt64} }
func money(name string) *Column {
	return &Column{Name: name, DataType: DataTypeDouble, Format: FormatCurrency}
}
func percent(name string) *Column {
	return &Column{Name: name, DataType: DataTypeDouble, Format: FormatPercent}
}
func decimal(name string) *Column {
	return &Column{Name: name, DataType: DataTypeDouble, Format: FormatDecimal}
}

// withMetrics binds metric keys ("key=Table.Column") and returns the schema.
func (s *Schema) withMetrics(defs ...string) *Schema {
	for _, def := range defs {
		key, ref, _ := strings.Cut(def, "=")
		table, column, _ := strings.Cut(ref, ".")

		format := FormatNumber
		if t, ok := s.Table(table); ok {
			if c, ok := t.Column(column); ok {
				format = c.Format
			}
		}

		s.metrics = append(s.metrics, &MetricRef{
			Key:    key,
			Table:  table,
			Column: column,
			Format: format,
		})
	}
	return s
}

var schemaCatalog = map[Scenario]func() *Schema{
	ScenarioRetail: func() *Schema {
		return (&Schema{
			Scenario: ScenarioRetail,
			Tables: []*Table{
				{Name: "Sales", Columns: []*Column{
					date("Date"), text("OrderID"), text("StoreID"), text("Category"), text("Product"), text("Channel"),
					money("Revenue"), money("RevenuePY"), money("RevenuePL"), money("Profit"), money("ProfitPY"),
					money("Cost"), whole("Quantity"), percent("Discount"),
				}},
				{Name: "Stores", Columns: []*Column{
					text("StoreID"), text("StoreName"), text("Region"), whole("SquareFeet"), whole("Staff"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Sales", FromColumn: "StoreID", ToTable: "Stores", ToColumn: "StoreID"},
			},
			PrimaryDimension:   "Category",
			SecondaryDimension: "Region",
			TimeDimension:      "Date",
			PrimaryMetric:      "revenue",
			SecondaryMetric:    "profit",
		}).withMetrics(
			"revenue=Sales.Revenue", "revenuePY=Sales.RevenuePY", "revenuePL=Sales.RevenuePL",
			"profit=Sales.Profit", "profitPY=Sales.ProfitPY", "cost=Sales.Cost",
			"quantity=Sales.Quantity", "discount=Sales.Discount", "orders=Sales.OrderID",
			"squareFeet=Stores.SquareFeet", "staff=Stores.Staff",
		)
	},
	ScenarioSaaS: func() *Schema {
		return (&Schema{
			Scenario: ScenarioSaaS,
			Tables: []*Table{
				{Name: "Subscriptions", Columns: []*Column{
					date("Date"), text("CustomerID"), text("Tier"), text("Region"), text("Channel"),
					money("MRR"), money("MRRPY"), money("MRRPL"), whole("Seats"), whole("Churned"),
					money("LTV"), money("CAC"),
				}},
				{Name: "Customers", Columns: []*Column{
					text("CustomerID"), text("Industry"), text("Segment"), text("Country"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Subscriptions", FromColumn: "CustomerID", ToTable: "Customers", ToColumn: "CustomerID"},
			},
			PrimaryDimension:   "Tier",
			SecondaryDimension: "Region",
			TimeDimension:      "Date",
			PrimaryMetric:      "mrr",
			SecondaryMetric:    "seats",
		}).withMetrics(
			"mrr=Subscriptions.MRR", "mrrPY=Subscriptions.MRRPY", "mrrPL=Subscriptions.MRRPL",
			"seats=Subscriptions.Seats", "churned=Subscriptions.Churned", "ltv=Subscriptions.LTV",
			"cac=Subscriptions.CAC", "customers=Subscriptions.CustomerID",
		)
	},
	ScenarioHR: func() *Schema {
		return (&Schema{
			Scenario: ScenarioHR,
			Tables: []*Table{
				{Name: "Employees", Columns: []*Column{
					date("Date"), text("EmployeeID"), text("Department"), text("Role"), text("Location"), text("Gender"),
					money("Salary"), money("SalaryPL"), decimal("Tenure"), whole("Attrition"), percent("Engagement"),
					whole("Offers"), whole("OffersAccepted"),
				}},
				{Name: "Departments", Columns: []*Column{
					text("Department"), text("Division"), whole("BudgetHeadcount"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Employees", FromColumn: "Department", ToTable: "Departments", ToColumn: "Department"},
			},
			PrimaryDimension:   "Department",
			SecondaryDimension: "Location",
			TimeDimension:      "Date",
			PrimaryMetric:      "salary",
			SecondaryMetric:    "tenure",
		}).withMetrics(
			"salary=Employees.Salary", "salaryPL=Employees.SalaryPL", "tenure=Employees.Tenure",
			"attrition=Employees.Attrition", "engagement=Employees.Engagement", "offers=Employees.Offers",
			"offersAccepted=Employees.OffersAccepted", "headcount=Employees.EmployeeID",
			"budgetHeadcount=Departments.BudgetHeadcount",
		)
	},
	ScenarioLogistics: func() *Schema {
		return (&Schema{
			Scenario: ScenarioLogistics,
			Tables: []*Table{
				{Name: "Shipments", Columns: []*Column{
					date("Date"), text("ShipmentID"), text("Status"), text("Carrier"), text("Origin"),
					text("Destination"), text("Mode"), money("Cost"), money("CostPY"), money("CostPL"),
					decimal("Weight"), decimal("TransitDays"), whole("OnTime"), decimal("Distance"),
				}},
				{Name: "Carriers", Columns: []*Column{
					text("Carrier"), text("CarrierType"), decimal("Rating"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Shipments", FromColumn: "Carrier", ToTable: "Carriers", ToColumn: "Carrier"},
			},
			PrimaryDimension:   "Status",
			SecondaryDimension: "Carrier",
			TimeDimension:      "Date",
			PrimaryMetric:      "cost",
			SecondaryMetric:    "transitDays",
		}).withMetrics(
			"cost=Shipments.Cost", "costPY=Shipments.CostPY", "costPL=Shipments.CostPL",
			"weight=Shipments.Weight", "transitDays=Shipments.TransitDays", "onTime=Shipments.OnTime",
			"distance=Shipments.Distance", "shipments=Shipments.ShipmentID", "rating=Carriers.Rating",
		)
	},
	ScenarioFinance: func() *Schema {
		return (&Schema{
			Scenario: ScenarioFinance,
			Tables: []*Table{
				{Name: "Ledger", Columns: []*Column{
					date("Date"), text("BusinessUnit"), text("Account"), text("AccountType"), text("CostCenter"),
					money("Amount"), money("AmountPY"), money("Budget"), money("Revenue"), money("RevenuePY"),
					money("COGS"), money("Opex"),
				}},
				{Name: "BusinessUnits", Columns: []*Column{
					text("BusinessUnit"), text("Region"), text("Manager"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Ledger", FromColumn: "BusinessUnit", ToTable: "BusinessUnits", ToColumn: "BusinessUnit"},
			},
			PrimaryDimension:   "BusinessUnit",
			SecondaryDimension: "AccountType",
			TimeDimension:      "Date",
			PrimaryMetric:      "amount",
			SecondaryMetric:    "revenue",
		}).withMetrics(
			"amount=Ledger.Amount", "amountPY=Ledger.AmountPY", "amountPL=Ledger.Budget",
			"budget=Ledger.Budget", "revenue=Ledger.Revenue", "revenuePY=Ledger.RevenuePY",
			"cogs=Ledger.COGS", "opex=Ledger.Opex",
		)
	},
	ScenarioPortfolio: func() *Schema {
		return (&Schema{
			Scenario: ScenarioPortfolio,
			Tables: []*Table{
				{Name: "Holdings", Columns: []*Column{
					date("Date"), text("Ticker"), text("Sector"), text("AssetClass"), text("Region"),
					money("MarketValue"), money("MarketValuePY"), money("CostBasis"), decimal("Quantity"),
					percent("Return"), money("Dividend"),
				}},
				{Name: "Securities", Columns: []*Column{
					text("Ticker"), text("SecurityName"), text("Exchange"), decimal("Beta"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Holdings", FromColumn: "Ticker", ToTable: "Securities", ToColumn: "Ticker"},
			},
			PrimaryDimension:   "Sector",
			SecondaryDimension: "AssetClass",
			TimeDimension:      "Date",
			PrimaryMetric:      "marketValue",
			SecondaryMetric:    "return",
		}).withMetrics(
			"marketValue=Holdings.MarketValue", "marketValuePY=Holdings.MarketValuePY",
			"costBasis=Holdings.CostBasis", "quantity=Holdings.Quantity", "return=Holdings.Return",
			"dividend=Holdings.Dividend", "positions=Holdings.Ticker", "beta=Securities.Beta",
		)
	},
	ScenarioSocial: func() *Schema {
		return (&Schema{
			Scenario: ScenarioSocial,
			Tables: []*Table{
				{Name: "Posts", Columns: []*Column{
					date("Date"), text("PostID"), text("Platform"), text("ContentType"), text("Campaign"),
					whole("Impressions"), whole("ImpressionsPL"), whole("Reach"), whole("Engagements"),
					whole("Clicks"), whole("Followers"), whole("FollowersPY"), money("Spend"),
				}},
				{Name: "Campaigns", Columns: []*Column{
					text("Campaign"), text("Objective"), money("Budget"),
				}},
			},
			Relationships: []*Relationship{
				{FromTable: "Posts", FromColumn: "Campaign", ToTable: "Campaigns", ToColumn: "Campaign"},
			},
			PrimaryDimension:   "Platform",
			SecondaryDimension: "ContentType",
			TimeDimension:      "Date",
			PrimaryMetric:      "impressions",
			SecondaryMetric:    "engagements",
		}).withMetrics(
			"impressions=Posts.Impressions", "impressionsPL=Posts.ImpressionsPL", "reach=Posts.Reach",
			"engagements=Posts.Engagements", "clicks=Posts.Clicks", "followers=Posts.Followers",
			"followersPY=Posts.FollowersPY", "spend=Posts.Spend", "posts=Posts.PostID",
			"budget=Campaigns.Budget",
		)
	},
}
