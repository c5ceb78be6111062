package models

// Requests for advisor HTTP endpoints. Defined in domain for consistency and reuse.

type CreatePortfolioRequest struct {
	ID          string  `json:"id" validate:"omitempty,max=64"`
	Profile     string  `json:"profile" default:"moderate" validate:"required"`
	InitialCash float64 `json:"initial_cash" default:"10000" validate:"gt=0"`
}

type PortfolioRequest struct {
	ID string `param:"id" validate:"required"`
}

type TradeRequest struct {
	ID          string   `param:"id" json:"-" validate:"required"`
	Symbol      string   `json:"symbol" validate:"required,max=32"`
	Side        string   `json:"side" validate:"required,oneof=BUY SELL buy sell"`
	Qty         float64  `json:"qty" validate:"gt=0"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Fees        float64  `json:"fees" validate:"gte=0"`
	ReasonCodes []string `json:"reason_codes" validate:"omitempty,dive,required"`
}

type SetPricesRequest struct {
	Prices map[string]float64 `json:"prices" validate:"required,min=1,dive,keys,required,endkeys,gt=0"`
}

type RecommendationsRequest struct {
	ID      string   `param:"id" json:"-" validate:"required"`
	Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,required"`
	AsOf    string   `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

type ExplainRequest struct {
	ID     string `param:"id" validate:"required"`
	Symbol string `param:"symbol" validate:"required"`
	Lang   string `query:"lang" validate:"omitempty,max=35"`
}

type ApplyRequest struct {
	ID     string  `param:"id" json:"-" validate:"required"`
	Symbol string  `param:"symbol" json:"-" validate:"required"`
	Fees   float64 `json:"fees" validate:"gte=0"`
}
