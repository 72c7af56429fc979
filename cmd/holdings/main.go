// Command holdings prints every balance across the configured exchanges,
// valued in BTC and USD, as a one-shot report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"bitdo/internal/config"
	"bitdo/internal/svc"
	"bitdo/pkg/format"
)

const fetchTimeout = 2 * time.Minute

var configFile = flag.String("f", "etc/bitdo.yaml", "the config file")

func main() {
	flag.Parse()

	log.SetFlags(0)

	appCfg := config.MustLoad(*configFile)
	svcCtx := svc.NewServiceContext(*appCfg)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	holdings, err := svcCtx.Holdings.GetHoldings(ctx)
	if err != nil {
		log.Fatalf("fetch holdings: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXCHANGE\tSYMBOL\tAMOUNT\tBTC\tUSD")

	var totalBtc, totalUsd decimal.Decimal
	for _, h := range holdings {
		if h.Balance.IsZero() {
			continue
		}
		exchangeName := ""
		if h.Exchange != nil {
			exchangeName = h.Exchange.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			exchangeName,
			h.Currency,
			format.Number(h.Balance),
			format.Number(h.Conversions.BTC),
			format.Short(h.Conversions.USD),
		)
		totalBtc = totalBtc.Add(h.Conversions.BTC)
		totalUsd = totalUsd.Add(h.Conversions.USD)
	}

	fmt.Fprintf(w, "TOTAL\t\t\t%s\t%s\n", format.Number(totalBtc), format.Short(totalUsd))
	w.Flush()
}
