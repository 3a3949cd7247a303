// Command offer-ingest publishes promo offers from gzipped partner feeds.
//
// Each feed line is CODE[,kind,value[,points_cost[,title]]]. A code is
// published only when at least -min-feeds distinct feeds list it; the
// first feed (in path order) carrying explicit terms defines the offer.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/repository"
)

const (
	maxFeeds      = 64
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 4
	maxCodeLen    = 16
)

type options struct {
	databaseURL string
	pattern     string
	minFeeds    int
	capacity    uint
	update      bool
	dryRun      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or CHOCO_DATABASE_URL / DATABASE_URL env)")
	flag.StringVar(&opts.pattern, "feeds", "data/offers*.gz", "glob of gzipped offer feeds")
	flag.IntVar(&opts.minFeeds, "min-feeds", 2, "number of feeds that must list a code")
	flag.UintVar(&opts.capacity, "capacity", 10_000_000, "expected codes per feed, sizes the bloom filters")
	flag.BoolVar(&opts.update, "update", false, "overwrite offers whose code is already stored")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "print confirmed offers without writing them")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("CHOCO_DATABASE_URL")
	}
	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" && !opts.dryRun {
		slog.Error("database URL is required: set --database-url or CHOCO_DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("offer ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("offer ingest completed")
}

func run(ctx context.Context, opts options) error {
	files, err := filepath.Glob(opts.pattern)
	if err != nil {
		return errors.Wrap(err, "match feeds")
	}
	sort.Strings(files)
	switch {
	case len(files) == 0:
		return errors.Errorf("no feeds match %q", opts.pattern)
	case len(files) > maxFeeds:
		return errors.Errorf("%d feeds exceed the limit of %d", len(files), maxFeeds)
	case opts.minFeeds < 1 || opts.minFeeds > len(files):
		return errors.Errorf("min-feeds %d out of range for %d feeds", opts.minFeeds, len(files))
	}

	offers, err := confirm(ctx, files, opts.minFeeds, opts.capacity)
	if err != nil {
		return err
	}
	slog.Info("confirmed offers", slog.Int("count", len(offers)))

	if opts.dryRun {
		for _, o := range offers {
			slog.Info("offer",
				slog.String("code", o.Code),
				slog.String("kind", string(o.Kind)),
				slog.String("value", o.Value.String()),
				slog.Int64("points_cost", o.PointsCost),
			)
		}
		return nil
	}
	if len(offers) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return publish(ctx, repository.NewOfferRepository(pool), offers, opts.update)
}

// confirm returns the offers listed by at least minFeeds feeds. The first
// pass fills one bloom filter per feed. The second pass keeps only codes
// matched by at least minFeeds filters; the merge counts exact occurrences.
func confirm(ctx context.Context, files []string, minFeeds int, capacity uint) ([]offer.Offer, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f := bloom.NewWithEstimates(capacity, bloomFPR)
			n, err := scanFeed(gctx, path, func(e entry) { f.AddString(e.code) })
			if err != nil {
				return errors.Wrapf(err, "index feed %s", path)
			}
			slog.Info("indexed feed", slog.String("path", path), slog.Int("codes", n))
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := make([]map[string]*terms, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			local := make(map[string]*terms)
			_, err := scanFeed(gctx, path, func(e entry) {
				if t, seen := local[e.code]; seen {
					if t == nil && e.terms != nil {
						local[e.code] = e.terms
					}
					return
				}
				var hits int
				for _, f := range filters {
					if f.TestString(e.code) {
						hits++
					}
				}
				if hits >= minFeeds {
					local[e.code] = e.terms
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan feed %s", path)
			}
			slog.Info("scanned feed", slog.String("path", path), slog.Int("candidates", len(local)))
			found[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*candidate)
	for i, local := range found {
		for code, t := range local {
			c, ok := merged[code]
			if !ok {
				c = &candidate{}
				merged[code] = c
			}
			c.feeds |= 1 << uint(i)
			if c.terms == nil {
				c.terms = t
			}
		}
	}

	var out []offer.Offer
	for code, c := range merged {
		if bits.OnesCount64(c.feeds) >= minFeeds {
			out = append(out, c.offer(code))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type candidate struct {
	feeds uint64
	terms *terms
}

func (c *candidate) offer(code string) offer.Offer {
	o := offer.Offer{
		Code:   code,
		Title:  "Partner promo " + code,
		Kind:   offer.KindPercent,
		Value:  decimal.NewFromInt(10),
		Active: true,
	}
	if t := c.terms; t != nil {
		o.Kind, o.Value, o.PointsCost = t.kind, t.value, t.pointsCost
		if t.title != "" {
			o.Title = t.title
		}
	}
	return o
}

type terms struct {
	kind       offer.Kind
	value      decimal.Decimal
	pointsCost int64
	title      string
}

type entry struct {
	code  string
	terms *terms
}

// parseLine decodes one feed line. Malformed lines report ok=false.
func parseLine(line string) (entry, bool) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	code := strings.ToUpper(strings.TrimSpace(fields[0]))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return entry{}, false
	}
	e := entry{code: code}
	if len(fields) == 1 {
		return e, true
	}
	if len(fields) == 2 {
		return entry{}, false
	}

	t := &terms{kind: offer.Kind(strings.TrimSpace(fields[1]))}
	if !(offer.Offer{Kind: t.kind}).Valid() {
		return entry{}, false
	}
	v, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil || v.IsNegative() {
		return entry{}, false
	}
	t.value = v
	if len(fields) > 3 {
		p, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil || p < 0 {
			return entry{}, false
		}
		t.pointsCost = p
	}
	if len(fields) > 4 {
		t.title = strings.TrimSpace(strings.Join(fields[4:], ","))
	}
	e.terms = t
	return e, true
}

// scanFeed streams a gzipped feed and calls fn for every well-formed line.
func scanFeed(ctx context.Context, path string, fn func(entry)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var n int
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		e, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		fn(e)
		n++
		if n%progressEvery == 0 {
			slog.Info("feed progress", slog.String("path", path), slog.Int("codes", n))
		}
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "scan")
	}
	return n, nil
}

type offerStore interface {
	ListCodes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, o *offer.Offer) error
}

// publish writes offers, skipping codes already stored unless update is set.
func publish(ctx context.Context, store offerStore, offers []offer.Offer, update bool) error {
	existing := make(map[string]struct{})
	if !update {
		codes, err := store.ListCodes(ctx)
		if err != nil {
			return errors.Wrap(err, "list stored codes")
		}
		for _, c := range codes {
			existing[strings.ToUpper(c)] = struct{}{}
		}
	}

	var written, skipped int
	for i := range offers {
		if _, ok := existing[offers[i].Code]; ok {
			skipped++
			continue
		}
		if err := store.Upsert(ctx, &offers[i]); err != nil {
			return errors.Wrapf(err, "publish %s", offers[i].Code)
		}
		written++
	}
	slog.Info("published offers", slog.Int("written", written), slog.Int("skipped", skipped))
	return nil
}
