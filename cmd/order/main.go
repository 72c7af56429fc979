// Command order places, tracks, cancels and lists limit orders on the
// configured exchanges. Products are written as EXCHANGE:CUR-REL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"bitdo/internal/config"
	"bitdo/internal/svc"
	"bitdo/pkg/exchange"
	"bitdo/pkg/format"
	"bitdo/pkg/product"
)

const (
	fetchTimeout  = 2 * time.Minute
	cancelTimeout = 30 * time.Second // Budget for canceling on interrupt
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "buy":
		runOrder(exchange.SideBuy, args)
	case "sell":
		runOrder(exchange.SideSell, args)
	case "cancel":
		runCancel(args)
	case "list":
		runList(args)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: order <buy|sell|cancel|list> [options]")
	os.Exit(2)
}

func runOrder(side exchange.Side, args []string) {
	fs := flag.NewFlagSet(string(side), flag.ExitOnError)
	configFile := fs.String("f", "etc/bitdo.yaml", "the config file")
	productFlag := fs.String("p", "", "product in EXCHANGE:CUR-REL form, e.g. GDAX:BTC-USD")
	amountFlag := fs.String("amount", "", "size, a percentage of the available balance, or 'all'")
	priceFlag := fs.String("price", "", "limit price")
	pollSecs := fs.Int("pollsecs", 10, "seconds between order status polls")
	noTrack := fs.Bool("notrack", false, "do not wait for the order to settle")
	fs.Parse(args)

	ex, prod := mustResolveExchange(*configFile, *productFlag)
	if prod.Relation == "" {
		log.Fatalf("[order.%s] product %s needs a relation, e.g. %s:%s-USD", side, prod, prod.Exchange, prod.Symbol)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(*priceFlag))
	if err != nil {
		log.Fatalf("[order.%s] invalid price %q", side, *priceFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	size, err := resolveAmount(ctx, ex, prod.Symbol, *amountFlag)
	if err != nil {
		log.Fatalf("[order.%s] %v", side, err)
	}
	if !size.IsPositive() {
		log.Fatalf("[order.%s] resolved size %s is not positive", side, format.Number(size))
	}

	log.Printf("[order.%s] Creating %s %s-%s size=%s price=%s...",
		side, side, prod.Symbol, prod.Relation, format.Number(size), format.Number(price))
	receipt, err := ex.CreateLimitOrder(ctx, side, prod.Symbol, prod.Relation, size, price)
	if err != nil {
		log.Fatalf("[order.%s] create order: %v", side, err)
	}
	log.Printf("[order.%s] [OK] order %s created", side, receipt.ID)

	if receipt.Settled {
		log.Printf("[order.%s] order settled immediately", side)
		return
	}
	if *noTrack {
		return
	}
	if err := waitForFill(ctx, ex, receipt.ID, time.Duration(*pollSecs)*time.Second); err != nil {
		log.Fatalf("[order.track] %v", err)
	}
}

// waitForFill polls until the order settles. An interrupt cancels the order
// instead of abandoning it on the book.
func waitForFill(ctx context.Context, ex *exchange.Exchange, orderID string, every time.Duration) error {
	log.Printf("[order.track] Polling order %s every %s...", orderID, every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[order.track] Exit requested, canceling order %s...", orderID)
			cctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			defer cancel()
			if err := ex.CancelOrder(cctx, orderID); err != nil {
				return fmt.Errorf("cancel order %s: %w", orderID, err)
			}
			log.Println("[order.track] Order canceled")
			return nil
		case <-ticker.C:
			order, err := ex.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if order == nil {
				log.Printf("[order.track] %s cannot look up single orders, not tracking", ex.Name)
				return nil
			}
			if order.Settled {
				log.Printf("[order.track] Order settled in status %s", order.Status)
				return nil
			}
		}
	}
}

func runCancel(args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	configFile := fs.String("f", "etc/bitdo.yaml", "the config file")
	productFlag := fs.String("p", "", "product naming the exchange, e.g. GDAX:BTC-USD")
	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatalf("[order.cancel] exactly one order id is required")
	}

	ex, _ := mustResolveExchange(*configFile, *productFlag)
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	orderID := fs.Arg(0)
	if err := ex.CancelOrder(ctx, orderID); err != nil {
		log.Fatalf("[order.cancel] %v", err)
	}
	log.Printf("[order.cancel] [OK] order %s canceled", orderID)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configFile := fs.String("f", "etc/bitdo.yaml", "the config file")
	all := fs.Bool("all", false, "include settled orders")
	side := fs.String("side", "", "show only buy or sell orders")
	fs.Parse(args)

	appCfg := config.MustLoad(*configFile)
	svcCtx := svc.NewServiceContext(*appCfg)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	var orders []exchange.Order
	for _, ex := range svcCtx.Exchanges {
		list, err := ex.GetOrders(ctx)
		if err != nil {
			if exchange.IsUnsupported(err) {
				log.Printf("[order.list] %s does not support order listing, skipping", ex.Name)
				continue
			}
			log.Fatalf("[order.list] %s: %v", ex.Name, err)
		}
		orders = append(orders, list...)
	}

	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Date.After(orders[j].Date) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXCHANGE\tPRODUCT\tTYPE\tSIDE\tSTATUS\tPRICE\tSIZE\tFEE")
	for _, o := range orders {
		if !*all && o.Status != exchange.StatusOpen && o.Status != exchange.StatusUnknown {
			continue
		}
		if *side != "" && string(o.Side) != strings.ToLower(*side) {
			continue
		}
		exchangeName := ""
		if o.Exchange != nil {
			exchangeName = o.Exchange.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, exchangeName, o.Product, o.Type, o.Side, o.Status,
			format.Number(o.Price), format.Number(o.Size), format.Number(o.Fee))
	}
	w.Flush()
}

// mustResolveExchange parses the product reference and finds the named
// exchange in the configured set.
func mustResolveExchange(configFile, rawProduct string) (*exchange.Exchange, product.Product) {
	prod, err := product.Parse(rawProduct)
	if err != nil {
		log.Fatalf("[order] %v", err)
	}
	if prod.Exchange == "" {
		log.Fatalf("[order] product %q needs an exchange prefix, e.g. GDAX:%s", rawProduct, prod)
	}

	appCfg := config.MustLoad(configFile)
	svcCtx := svc.NewServiceContext(*appCfg)
	for _, ex := range svcCtx.Exchanges {
		if ex.Name == prod.Exchange {
			return ex, prod
		}
	}
	log.Fatalf("[order] exchange %s is not configured", prod.Exchange)
	return nil, prod
}

// resolveAmount turns "all" or a percentage like "25%" into a concrete size
// against the available balance; plain numbers pass through.
func resolveAmount(ctx context.Context, ex *exchange.Exchange, symbol, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if !strings.EqualFold(raw, "all") && !strings.HasSuffix(raw, "%") {
		size, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid amount %q", raw)
		}
		return size, nil
	}

	holding, err := ex.GetHolding(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("resolve %s balance: %w", symbol, err)
	}
	if strings.EqualFold(raw, "all") {
		return holding.Available, nil
	}
	pct, err := decimal.NewFromString(strings.TrimSuffix(raw, "%"))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", raw)
	}
	return holding.Available.Mul(pct).Div(decimal.NewFromInt(100)), nil
}
