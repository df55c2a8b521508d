package symbols

import "strings"

// Class is the asset class of an internal symbol, derived purely from its syntax.
type Class int

const (
	Stock Class = iota
	Crypto
	Commodity
)

func (c Class) String() string {
	switch c {
	case Crypto:
		return "crypto"
	case Commodity:
		return "commodity"
	default:
		return "stock"
	}
}

// Classify never fails: anything that is not a crypto pair or a futures
// contract is treated as a stock/equity symbol.
func Classify(symbol string) Class {
	switch {
	case IsCrypto(symbol):
		return Crypto
	case IsCommodity(symbol):
		return Commodity
	default:
		return Stock
	}
}

// IsCrypto reports whether the symbol follows the fiat-pair convention
// (e.g. "BTC-USD") without a futures-contract marker.
func IsCrypto(symbol string) bool {
	return strings.HasSuffix(symbol, "-USD") && !strings.Contains(symbol, "=")
}

// IsCommodity reports whether the symbol carries the futures-contract
// marker (e.g. "GC=F").
func IsCommodity(symbol string) bool {
	return strings.Contains(symbol, "=F")
}

// coinGeckoIDs maps internal crypto pairs to CoinGecko asset identifiers.
var coinGeckoIDs = map[string]string{
	"BTC-USD":   "bitcoin",
	"ETH-USD":   "ethereum",
	"BNB-USD":   "binancecoin",
	"SOL-USD":   "solana",
	"XRP-USD":   "ripple",
	"ADA-USD":   "cardano",
	"DOGE-USD":  "dogecoin",
	"DOT-USD":   "polkadot",
	"AVAX-USD":  "avalanche-2",
	"LINK-USD":  "chainlink",
	"MATIC-USD": "matic-network",
	"LTC-USD":   "litecoin",
	"UNI-USD":   "uniswap",
	"XLM-USD":   "stellar",
	"ATOM-USD":  "cosmos",
	"NEAR-USD":  "near",
	"APT-USD":   "aptos",
	"ARB-USD":   "arbitrum",
	"OP-USD":    "optimism",
	"AAVE-USD":  "aave",
	"GRT-USD":   "the-graph",
	"FIL-USD":   "filecoin",
	"RNDR-USD":  "render-token",
	"INJ-USD":   "injective-protocol",
	"SUI-USD":   "sui",
	"TON-USD":   "the-open-network",
	"SHIB-USD":  "shiba-inu",
	"PEPE-USD":  "pepe",
	"ICP-USD":   "internet-computer",
	"TRX-USD":   "tron",
}

// oandaSymbols maps commodity/metal futures codes to Finnhub OANDA symbols.
var oandaSymbols = map[string]string{
	"GC=F": "OANDA:XAU_USD",
	"SI=F": "OANDA:XAG_USD",
	"PL=F": "OANDA:XPT_USD",
	"PA=F": "OANDA:XPD_USD",
	"HG=F": "OANDA:XCU_USD",
	"CL=F": "OANDA:BCO_USD",
	"NG=F": "OANDA:NATGAS_USD",
	"ZC=F": "OANDA:CORN_USD",
	"ZW=F": "OANDA:WHEAT_USD",
	"ZS=F": "OANDA:SOYBN_USD",
	"KC=F": "OANDA:COFFEE_USD",
	"CT=F": "OANDA:COTTON_USD",
	"SB=F": "OANDA:SUGAR_USD",
	"CC=F": "OANDA:COCOA_USD",
}

// binanceStreams maps internal crypto pairs to Binance stream symbols for
// the live ticker feed. Narrower than coinGeckoIDs: only pairs Binance lists.
var binanceStreams = map[string]string{
	"BTC-USD":   "btcusdt",
	"ETH-USD":   "ethusdt",
	"SOL-USD":   "solusdt",
	"DOGE-USD":  "dogeusdt",
	"XRP-USD":   "xrpusdt",
	"ADA-USD":   "adausdt",
	"AVAX-USD":  "avaxusdt",
	"DOT-USD":   "dotusdt",
	"MATIC-USD": "maticusdt",
	"LINK-USD":  "linkusdt",
	"BNB-USD":   "bnbusdt",
	"LTC-USD":   "ltcusdt",
	"UNI-USD":   "uniusdt",
	"ATOM-USD":  "atomusdt",
	"NEAR-USD":  "nearusdt",
}

var reverseBinanceStreams = func() map[string]string {
	m := make(map[string]string, len(binanceStreams))
	for internal, pair := range binanceStreams {
		m[strings.ToUpper(pair)] = internal
	}
	return m
}()

// CoinGeckoID returns the CoinGecko asset id for an internal crypto pair.
// ok is false for unmapped symbols; callers skip the CoinGecko path then.
func CoinGeckoID(symbol string) (string, bool) {
	id, ok := coinGeckoIDs[symbol]
	return id, ok
}

// OandaSymbol maps a futures code to its OANDA-routed Finnhub symbol,
// falling back to the symbol unchanged when no mapping exists.
func OandaSymbol(symbol string) string {
	if s, ok := oandaSymbols[symbol]; ok {
		return s
	}
	return symbol
}

// BinanceSymbol converts an internal crypto pair into the exchange-routed
// Finnhub symbol, e.g. "BTC-USD" -> "BINANCE:BTCUSDT".
func BinanceSymbol(symbol string) string {
	return "BINANCE:" + strings.Replace(symbol, "-USD", "USDT", 1)
}

// BinanceStream returns the lower-case Binance stream symbol for a crypto
// pair, when Binance lists it.
func BinanceStream(symbol string) (string, bool) {
	s, ok := binanceStreams[symbol]
	return s, ok
}

// FromBinanceStream resolves an upper-case Binance pair (as it appears in
// ticker messages) back to the internal symbol.
func FromBinanceStream(pair string) (string, bool) {
	s, ok := reverseBinanceStreams[pair]
	return s, ok
}
