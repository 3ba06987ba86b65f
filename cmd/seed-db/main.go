package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lazzat-eats/order-engine/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// Fallback menu used when no products file is supplied.
var defaultProducts = []productJSON{
	{ID: "plov-classic", Name: "Chaykhana plov", Price: decimal.NewFromInt(38000), Category: "mains"},
	{ID: "lagman-fried", Name: "Fried lagman", Price: decimal.NewFromInt(34000), Category: "mains"},
	{ID: "samsa-beef", Name: "Beef samsa", Price: decimal.NewFromInt(8000), Category: "starters"},
	{ID: "shashlik-lamb", Name: "Lamb shashlik (1 skewer)", Price: decimal.NewFromInt(22000), Category: "grill"},
	{ID: "achichuk", Name: "Achichuk salad", Price: decimal.NewFromInt(9000), Category: "salads"},
	{ID: "non-bread", Name: "Tandir non", Price: decimal.NewFromInt(4000), Category: "bakery"},
	{ID: "tea-green", Name: "Green tea (pot)", Price: decimal.NewFromInt(6000), Category: "drinks"},
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "optional path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or LAZZAT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LAZZAT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("LAZZAT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or LAZZAT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LAZZAT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedDeliveryConfig(ctx, pool); err != nil {
		return errors.Wrap(err, "seed delivery config")
	}

	if err := seedCustomers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, price, category, available, in_stock)
VALUES ($1, $2, $3, $4, TRUE, TRUE)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    category = EXCLUDED.category
`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	products := defaultProducts
	if productsFile != "" {
		slog.Info("reading products file", slog.String("path", productsFile))

		data, err := os.ReadFile(productsFile)
		if err != nil {
			return errors.Wrap(err, "read products file")
		}
		if err := json.Unmarshal(data, &products); err != nil {
			return errors.Wrap(err, "parse products JSON")
		}
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertPromotionSQL = `
INSERT INTO promotions (id, code, kind, value, min_purchase, max_discount, max_uses, valid_from, valid_until, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
ON CONFLICT (id) DO UPDATE SET
    code = EXCLUDED.code,
    kind = EXCLUDED.kind,
    value = EXCLUDED.value,
    min_purchase = EXCLUDED.min_purchase,
    max_discount = EXCLUDED.max_discount,
    max_uses = EXCLUDED.max_uses,
    valid_from = EXCLUDED.valid_from,
    valid_until = EXCLUDED.valid_until,
    description = EXCLUDED.description,
    active = EXCLUDED.active
`

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding promotions")

	now := time.Now()

	type promoSeed struct {
		id          string
		code        string
		kind        string
		value       decimal.Decimal
		minPurchase decimal.Decimal
		maxDiscount decimal.Decimal
		maxUses     int32
		validFrom   *time.Time
		validUntil  *time.Time
		description string
	}

	weekEnd := now.Add(7 * 24 * time.Hour)

	promos := []promoSeed{
		{
			id:          "welcome10",
			code:        "WELCOME10",
			kind:        "percentage",
			value:       decimal.NewFromInt(10),
			minPurchase: decimal.NewFromInt(5000),
			maxDiscount: decimal.NewFromInt(20000),
			description: "Welcome: 10% off orders over 5 000 som",
		},
		{
			id:          "plovday",
			code:        "PLOVDAY",
			kind:        "fixed",
			value:       decimal.NewFromInt(5000),
			minPurchase: decimal.NewFromInt(30000),
			maxUses:     500,
			validUntil:  &weekEnd,
			description: "Plov day: 5 000 som off orders over 30 000",
		},
	}

	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsertPromotionSQL,
			p.id, p.code, p.kind, p.value, p.minPurchase, p.maxDiscount,
			p.maxUses, p.validFrom, p.validUntil, p.description,
		); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.code)
		}

		slog.Info("upserted promotion", slog.String("code", p.code), slog.String("description", p.description))
	}

	return nil
}

const (
	upsertDeliveryConfigSQL = `
INSERT INTO delivery_config (id, free_threshold, max_km)
VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET
    free_threshold = EXCLUDED.free_threshold,
    max_km = EXCLUDED.max_km
`
	clearDeliveryTiersSQL  = `DELETE FROM delivery_tiers`
	insertDeliveryTierSQL  = `INSERT INTO delivery_tiers (up_to_km, fee) VALUES ($1, $2)`
	defaultFreeThresholdUZ = 150_000
	defaultMaxKm           = 10
)

func seedDeliveryConfig(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding delivery fee table")

	if _, err := pool.Exec(ctx, upsertDeliveryConfigSQL,
		decimal.NewFromInt(defaultFreeThresholdUZ), float64(defaultMaxKm),
	); err != nil {
		return errors.Wrap(err, "upsert delivery config")
	}

	tiers := []struct {
		upToKm float64
		fee    decimal.Decimal
	}{
		{upToKm: 3, fee: decimal.NewFromInt(10000)},
		{upToKm: 6, fee: decimal.NewFromInt(15000)},
		{upToKm: 10, fee: decimal.NewFromInt(22000)},
	}

	if _, err := pool.Exec(ctx, clearDeliveryTiersSQL); err != nil {
		return errors.Wrap(err, "clear delivery tiers")
	}

	for _, t := range tiers {
		if _, err := pool.Exec(ctx, insertDeliveryTierSQL, t.upToKm, t.fee); err != nil {
			return errors.Wrapf(err, "insert delivery tier up to %.0f km", t.upToKm)
		}
	}

	slog.Info("seeded delivery tiers", slog.Int("count", len(tiers)))

	return nil
}

const upsertCustomerSQL = `
INSERT INTO customers (id, email, name, loyalty_balance)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding test customers")

	customers := []struct {
		id      string
		email   string
		name    string
		balance int32
	}{
		{id: "cust-demo", email: "demo@example.com", name: "Demo Customer", balance: 120},
		{id: "cust-fresh", email: "fresh@example.com", name: "Fresh Customer", balance: 0},
	}

	for _, c := range customers {
		if _, err := pool.Exec(ctx, upsertCustomerSQL, c.id, c.email, c.name, c.balance); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.id)
		}

		slog.Info("upserted customer", slog.String("id", c.id))
	}

	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, scopes, active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (id) DO UPDATE SET
    key_hash = EXCLUDED.key_hash,
    name = EXCLUDED.name,
    scopes = EXCLUDED.scopes
`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default test key", []string{"checkout"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}
