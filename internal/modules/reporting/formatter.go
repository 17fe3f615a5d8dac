// Package reporting renders rebalance and daily PnL reports and delivers them to the notification sink.
package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
)

const separator = "------------------------------"

// DisplaySymbol strips the "1000" contract multiplier prefix (1000SHIBUSDT -> SHIBUSDT)
func DisplaySymbol(symbol string) string {
	if strings.HasPrefix(symbol, "1000") && len(symbol) > 4 {
		return symbol[4:]
	}
	return symbol
}

// FormatAvgPrice rounds to 5 significant digits, then to 2 decimals
func FormatAvgPrice(v float64) string {
	sig, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 5, 64), 64)
	if err != nil {
		sig = v
	}
	rounded := math.Round(sig*100) / 100
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatCumQuote formats to 4 significant digits
func FormatCumQuote(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// FormatPnL formats to 2 decimals with negative zero shown as 0.00
func FormatPnL(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// OrderLine renders one order outcome. Skipped entries render as an empty string.
//
//	B BTCUSDT@27123.5~300.1U
//	F SOLUSDT FAILED.
func OrderLine(r domain.OrderResult) string {
	switch r.Status {
	case domain.OrderStatusFilled:
		side, symbol := r.Side, r.Symbol
		var avg, quote float64
		if r.Fill != nil {
			if r.Fill.Side != "" {
				side = r.Fill.Side
			}
			if r.Fill.Symbol != "" {
				symbol = r.Fill.Symbol
			}
			avg, quote = r.Fill.AvgPrice, r.Fill.CumQuote
		}
		code := "S"
		if side == domain.SideBuy {
			code = "B"
		}
		return fmt.Sprintf("%s %s@%s~%sU", code, DisplaySymbol(symbol), FormatAvgPrice(avg), FormatCumQuote(quote))
	case domain.OrderStatusFailed:
		return fmt.Sprintf("F %s FAILED.", DisplaySymbol(r.Symbol))
	default:
		return ""
	}
}

// OrderSection renders the order lines of a rebalance
func OrderSection(results []domain.OrderResult) string {
	var b strings.Builder
	b.WriteString("\n\n[Orders]")
	for _, r := range results {
		if line := OrderLine(r); line != "" {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}

// AccountSection renders the wallet balance and active positions
func AccountSection(snap *domain.AccountSnapshot) string {
	if snap == nil {
		return "\n\n[Account]\n  unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n[Total Assets]\n  %s USDT", strconv.FormatFloat(snap.WalletBalance, 'f', 2, 64))
	fmt.Fprintf(&b, "\n\n[Positions]\n%-10s|%10s|%10s\n%s", "Symbol", "Notional", "Unrealized", separator)
	for _, p := range snap.Positions {
		fmt.Fprintf(&b, "\n%-10s|%10s|%10s",
			DisplaySymbol(p.Symbol),
			strconv.FormatFloat(math.Round(p.Notional), 'f', 0, 64),
			FormatPnL(p.UnrealizedPnL),
		)
	}
	return b.String()
}

// RebalanceMessage renders the notification sent after a rebalance run
func RebalanceMessage(results []domain.OrderResult, snap *domain.AccountSnapshot) string {
	return "\n\n[Rebalance]" + OrderSection(results) + AccountSection(snap)
}

// DailyMessage renders the realized PnL of closed trades. Trade times are shown in the
// zone offsetHours east of UTC.
func DailyMessage(trades []domain.TradeRecord, offsetHours int, failedSymbols []string) string {
	var total float64
	for _, t := range trades {
		total += t.RealizedPnL
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n[Realized PnL Today]\n%sU", FormatPnL(total))
	fmt.Fprintf(&b, "\n\n[Realized Trades]\n%-5s|%-10s|%8s\n%s", "Time", "Symbol", "PnL", separator)

	zone := time.FixedZone("", offsetHours*3600)
	for _, t := range trades {
		fmt.Fprintf(&b, "\n%-5s S %-10s %sU",
			t.Time().In(zone).Format("15:04"),
			DisplaySymbol(t.Symbol),
			FormatPnL(t.RealizedPnL),
		)
	}
	for _, symbol := range failedSymbols {
		fmt.Fprintf(&b, "\nF %s HISTORY UNAVAILABLE.", DisplaySymbol(symbol))
	}
	return b.String()
}
