package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lazzat-eats/order-engine/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

// codeRule describes the promotion to create for a known campaign code.
type codeRule struct {
	kind        string
	value       string
	minPurchase string
	maxDiscount string
	description string
}

var codeRules = map[string]codeRule{
	"PLOVLOVE": {kind: "percentage", value: "15", minPurchase: "20000", maxDiscount: "30000", description: "Plov lovers: 15% off"},
	"NAVRUZ24": {kind: "percentage", value: "20", minPurchase: "30000", maxDiscount: "50000", description: "Navruz special: 20% off"},
	"TENOF40K": {kind: "fixed", value: "10000", minPurchase: "40000", maxDiscount: "0", description: "10 000 som off orders over 40 000"},
	"CHAYXONA": {kind: "percentage", value: "12", minPurchase: "0", maxDiscount: "25000", description: "Teahouse Tuesdays: 12% off"},
}

var defaultRule = codeRule{
	kind:        "percentage",
	value:       "10",
	minPurchase: "5000",
	maxDiscount: "20000",
	description: "Partner promo: 10% off",
}

// fileResult holds candidate codes found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promobaseN.gz files")
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
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("promobase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: Build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find candidate codes appearing in 2+ partner dumps.
	slog.Info("pass 2: finding candidate codes")

	validCodes, err := findValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid codes")
	}

	slog.Info("valid codes found", slog.Int("count", len(validCodes)))

	if len(validCodes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writePromotions(ctx, pool, validCodes); err != nil {
		return errors.Wrap(err, "write promotions to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) >= minCodeLen && len(code) <= maxCodeLen {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("codes", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidCodes re-streams each file and checks codes against OTHER files' bloom filters.
// A code is valid if it appears in 2 or more partner dumps.
func findValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files.
	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r.candidates {
			merged[code] |= mask
		}
	}

	// Keep codes appearing in 2+ files.
	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}

	return valid, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}

			// Check if this code appears in any OTHER file's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(code) {
					candidates[code] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
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
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

const upsertPromotionSQL = `
INSERT INTO promotions (id, code, kind, value, min_purchase, max_discount, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
ON CONFLICT (id) DO UPDATE SET
    kind = EXCLUDED.kind,
    value = EXCLUDED.value,
    min_purchase = EXCLUDED.min_purchase,
    max_discount = EXCLUDED.max_discount,
    description = EXCLUDED.description,
    active = TRUE
`

// writePromotions upserts all valid partner codes into the database.
func writePromotions(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing promotions to database", slog.Int("count", len(codes)))

	for i, code := range codes {
		rule, ok := codeRules[code]
		if !ok {
			rule = defaultRule
		}

		value, err := decimal.NewFromString(rule.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for code %s", code)
		}
		minPurchase, err := decimal.NewFromString(rule.minPurchase)
		if err != nil {
			return errors.Wrapf(err, "parse min purchase for code %s", code)
		}
		maxDiscount, err := decimal.NewFromString(rule.maxDiscount)
		if err != nil {
			return errors.Wrapf(err, "parse max discount for code %s", code)
		}

		if _, err := pool.Exec(ctx, upsertPromotionSQL,
			strings.ToLower(code), code, rule.kind, value, minPurchase, maxDiscount, rule.description,
		); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
