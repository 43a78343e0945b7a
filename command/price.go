package command

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// priceAPI is the CoinGecko simple price endpoint.
const priceAPI = "https://api.coingecko.com/api/v3/simple/price"

// Price looks up a cryptocurrency's USD price: "price bitcoin".
func Price(ctx context.Context, robo *Robot, call *Invocation) {
	if len(call.Args) == 0 {
		reply(ctx, call, fmt.Sprintf("usage: %sprice <coin>", robo.Prefix))
		return
	}
	coin := strings.ToLower(call.Args[0])
	u := priceAPI + "?ids=" + url.QueryEscape(coin) + "&vs_currencies=usd"
	var out map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := robo.Fetch.JSON(ctx, u, &out); err != nil {
		robo.Log.ErrorContext(ctx, "price lookup failed", slog.String("coin", coin), slog.Any("err", err))
		reply(ctx, call, "couldn't reach the price API")
		return
	}
	p, ok := out[coin]
	if !ok {
		reply(ctx, call, "I don't know that coin; use its full name, like bitcoin")
		return
	}
	reply(ctx, call, fmt.Sprintf("%s is $%.2f", coin, p.USD))
}
