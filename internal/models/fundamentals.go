package models

// Fundamentals field name constants
const (
	FundMarketCap       = "market_cap"
	FundPERatio         = "pe_ratio"
	FundDebtToEquity    = "debt_to_equity"
	FundROEPercent      = "roe_percent"
	FundCurrentRatio    = "current_ratio"
	FundOperatingMargin = "operating_margin_percent"
	FundRevenueGrowth   = "revenue_growth_percent"
	FundProfitMargin    = "profit_margin_percent"
	FundDividendYield   = "dividend_yield_percent"
	FundBookValue       = "book_value"
	FundSector          = "sector"
	FundIndustry        = "industry"
)

// FundamentalsRecord maps financial-statement field names to values
// (numbers or strings). Null source fields are dropped before the
// record is built, so a FundamentalsRecord never carries nil values.
type FundamentalsRecord map[string]interface{}
