// Command catalog-import loads bulk product feeds into the catalog. Feeds are
// gzip-compressed JSONL files, one product record per line. Files are parsed
// concurrently; a shared bloom filter deduplicates SKUs across files before
// the surviving records are upserted.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

// record is a single product line from a feed file.
type record struct {
	SKU           string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Category      string
}

// dedupe tracks SKUs already accepted across all feed files. The bloom filter
// rejects the common case cheaply; the map resolves false positives so a
// fresh SKU is never dropped.
type dedupe struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newDedupe() *dedupe {
	return &dedupe{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
	}
}

// claim reports whether sku is new and marks it as taken.
func (d *dedupe) claim(sku string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(sku) {
		if _, dup := d.seen[sku]; dup {
			return false
		}
	}
	d.filter.AddString(sku)
	d.seen[sku] = struct{}{}
	return true
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files found in %s", dataDir)
	}

	slog.Info("parsing feed files", slog.Int("files", len(files)))

	records, err := parseFeeds(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	slog.Info("unique records parsed", slog.Int("count", len(records)))

	if len(records) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeRecords(ctx, pool, records); err != nil {
		return errors.Wrap(err, "write records to database")
	}

	return nil
}

// parseFeeds streams all feed files concurrently, deduplicating SKUs across
// files. The first file to claim a SKU wins; later occurrences are skipped.
func parseFeeds(ctx context.Context, files []string) ([]record, error) {
	perFile := make([][]record, len(files))
	dd := newDedupe()

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(ctx, i, f, dd, perFile))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []record
	for _, rs := range perFile {
		merged = append(merged, rs...)
	}
	return merged, nil
}

func parseFeedFile(ctx context.Context, idx int, path string, dd *dedupe, out [][]record) func() error {
	return func() error {
		var (
			kept    []record
			total   uint64
			skipped uint64
		)

		if err := streamGzLines(ctx, path, func(line []byte) error {
			total++
			if total%progressEvery == 0 {
				slog.Info("parse progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("lines", total),
				)
			}

			rec, err := decodeRecord(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", total)
			}
			if rec.SKU == "" {
				skipped++
				return nil
			}
			if !dd.claim(rec.SKU) {
				skipped++
				return nil
			}
			kept = append(kept, rec)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse %s", filepath.Base(path))
		}

		slog.Info("parse complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("lines", total),
			slog.Uint64("skipped", skipped),
			slog.Int("kept", len(kept)),
		)

		out[idx] = kept
		return nil
	}
}

// decodeRecord parses one JSONL line. Unknown keys are skipped so feeds may
// carry extra vendor fields.
func decodeRecord(line []byte) (record, error) {
	var rec record
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sku":
			v, err := d.Str()
			if err != nil {
				return err
			}
			rec.SKU = v
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			rec.Name = v
		case "description":
			v, err := d.Str()
			if err != nil {
				return err
			}
			rec.Description = v
		case "price":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p, err := decimal.NewFromString(v)
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			rec.Price = p
		case "stockQuantity":
			v, err := d.Int()
			if err != nil {
				return err
			}
			rec.StockQuantity = v
		case "category":
			v, err := d.Str()
			if err != nil {
				return err
			}
			rec.Category = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return record{}, err
	}
	return rec, nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeRecords upserts all deduplicated records, ensuring categories on the
// way. Records that fail validation are logged and skipped rather than
// aborting the whole import.
func writeRecords(ctx context.Context, pool *pgxpool.Pool, records []record) error {
	slog.Info("writing products to database", slog.Int("count", len(records)))

	categories := repository.NewCategoryRepository(pool)
	products := repository.NewProductRepository(pool)

	categoryIDs := make(map[string]int64)
	now := time.Now().UTC()

	var written, invalid int
	for i, rec := range records {
		categoryID, ok := categoryIDs[rec.Category]
		if !ok {
			id, err := categories.EnsureByName(ctx, rec.Category)
			if err != nil {
				return errors.Wrapf(err, "ensure category %s", rec.Category)
			}
			categoryIDs[rec.Category] = id
			categoryID = id
		}

		p := &product.Product{
			Name:          rec.Name,
			Description:   rec.Description,
			Price:         rec.Price,
			StockQuantity: rec.StockQuantity,
			SKU:           rec.SKU,
			CategoryID:    categoryID,
			Active:        true,
			CreatedAt:     now,
		}
		if vs := p.Validate(); len(vs) > 0 {
			slog.Warn("skipping invalid record",
				slog.String("sku", rec.SKU),
				slog.String("violations", vs.Error()),
			)
			invalid++
			continue
		}

		if err := products.UpsertBySKU(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.SKU)
		}
		written++

		if (i+1)%1000 == 0 || i+1 == len(records) {
			slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(records)))
		}
	}

	slog.Info("write complete", slog.Int("written", written), slog.Int("invalid", invalid))
	return nil
}
