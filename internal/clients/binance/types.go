package binance

import "fmt"

// accountResponse is the subset of /fapi/v2/account used for positions and the wallet balance
type accountResponse struct {
	TotalWalletBalance float64           `json:"totalWalletBalance,string"`
	Positions          []accountPosition `json:"positions"`
}

type accountPosition struct {
	Symbol           string  `json:"symbol"`
	InitialMargin    float64 `json:"initialMargin,string"`
	UnrealizedProfit float64 `json:"unrealizedProfit,string"`
	PositionAmt      float64 `json:"positionAmt,string"`
	Notional         float64 `json:"notional,string"`
	PositionSide     string  `json:"positionSide"`
}

// orderResponse is the RESULT acknowledgement of POST /fapi/v1/order
type orderResponse struct {
	OrderID     int64   `json:"orderId"`
	Symbol      string  `json:"symbol"`
	Status      string  `json:"status"`
	Side        string  `json:"side"`
	AvgPrice    float64 `json:"avgPrice,string"`
	ExecutedQty float64 `json:"executedQty,string"`
	CumQuote    float64 `json:"cumQuote,string"`
}

// userTrade is one entry of /fapi/v1/userTrades
type userTrade struct {
	ID          int64   `json:"id"`
	Symbol      string  `json:"symbol"`
	OrderID     int64   `json:"orderId"`
	Side        string  `json:"side"`
	Price       float64 `json:"price,string"`
	Qty         float64 `json:"qty,string"`
	RealizedPnl float64 `json:"realizedPnl,string"`
	Time        int64   `json:"time"`
}

type tickerPrice struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,string"`
}

type serverTime struct {
	ServerTime int64 `json:"serverTime"`
}

// apiError is the error body Binance returns alongside a non-200 status
type apiError struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("binance API error %d (HTTP %d): %s", e.Code, e.Status, e.Msg)
}

// exchangeInfo is the subset of /fapi/v1/exchangeInfo used for quantity precision
type exchangeInfo struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol  string         `json:"symbol"`
	Filters []symbolFilter `json:"filters"`
}

type symbolFilter struct {
	FilterType string `json:"filterType"`
	StepSize   string `json:"stepSize,omitempty"`
	MinQty     string `json:"minQty,omitempty"`
}
