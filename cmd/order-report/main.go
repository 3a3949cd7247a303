// Command order-report prints recent orders as a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/xenking/choco-orders/internal/domain/order"
	"github.com/xenking/choco-orders/internal/repository"
)

func main() {
	var (
		databaseURL string
		userID      int64
		limit       int
		status      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or CHOCO_DATABASE_URL / DATABASE_URL env)")
	flag.Int64Var(&userID, "user", 0, "only orders of this user")
	flag.IntVar(&limit, "limit", 50, "maximum number of orders")
	flag.StringVar(&status, "status", "", "only orders in this status")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("CHOCO_DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or CHOCO_DATABASE_URL")
		os.Exit(1)
	}

	filter := order.ListFilter{Limit: limit}
	if userID > 0 {
		filter.UserID = &userID
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, filter, status); err != nil {
		slog.Error("order report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, filter order.ListFilter, status string) error {
	var want order.Status
	if status != "" {
		s, err := order.ParseStatus(status)
		if err != nil {
			return err
		}
		want = s
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	orders, err := repository.NewOrderRepository(pool).List(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	if want != "" {
		kept := orders[:0]
		for _, o := range orders {
			if o.Status == want {
				kept = append(kept, o)
			}
		}
		orders = kept
	}

	return render(os.Stdout, orders)
}

// render writes one row per order followed by a totals footer.
func render(w io.Writer, orders []order.Order) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Created", "Customer", "Status", "Items", "Discount", "Total", "Points")

	sum := decimal.Zero
	var earned int64
	for _, o := range orders {
		var items int
		for _, it := range o.Items {
			items += it.Qty
		}
		sum = sum.Add(o.Total)

		points := "-"
		if o.Meta != nil && o.Meta.PointsEarned != nil {
			points = fmt.Sprintf("+%d", *o.Meta.PointsEarned)
			earned += *o.Meta.PointsEarned
		}
		if o.Meta != nil && o.Meta.PointsSpent != nil {
			points += fmt.Sprintf(" -%d", *o.Meta.PointsSpent)
		}

		if err := table.Append([]string{
			fmt.Sprint(o.ID),
			o.CreatedAt.Format("2006-01-02 15:04"),
			customer(o),
			string(o.Status),
			fmt.Sprint(items),
			o.Discount.StringFixed(2),
			o.Total.StringFixed(2),
			points,
		}); err != nil {
			return errors.Wrap(err, "append row")
		}
	}

	table.Footer("", "", fmt.Sprintf("%d orders", len(orders)), "", "", "", sum.StringFixed(2), fmt.Sprintf("+%d", earned))
	return table.Render()
}

func customer(o order.Order) string {
	switch {
	case o.User != nil:
		return o.User.Name
	case o.Meta != nil && o.Meta.Contact.Name != "":
		return o.Meta.Contact.Name + " (guest)"
	default:
		return "guest"
	}
}
