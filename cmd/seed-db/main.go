// Command seed-db loads development fixtures: a book catalog from JSON, a
// few coupons, and user/admin sessions for exercising the API locally.
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

	"github.com/quillcart/bookstore/internal/repository"
)

type bookJSON struct {
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Stock           int             `json:"stock"`
}

func main() {
	var (
		databaseURL string
		booksFile   string
		userToken   string
		adminToken  string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&booksFile, "books-file", "db/seed/books.json", "path to books JSON file")
	flag.StringVar(&userToken, "user-token", "", "session token to seed for user 1 (or SHOP_SEED_USER_TOKEN env)")
	flag.StringVar(&adminToken, "admin-token", "", "admin session token to seed (or SHOP_SEED_ADMIN_TOKEN env)")
	flag.StringVar(&pepper, "session-pepper", "", "HMAC pepper for session token hashing (or SHOP_SESSION_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userToken == "" {
		userToken = os.Getenv("SHOP_SEED_USER_TOKEN")
	}
	if adminToken == "" {
		adminToken = os.Getenv("SHOP_SEED_ADMIN_TOKEN")
	}
	if pepper == "" {
		pepper = os.Getenv("SHOP_SESSION_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, booksFile, userToken, adminToken, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, booksFile, userToken, adminToken, pepper string) error {
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

	if err := seedBooks(ctx, pool, booksFile); err != nil {
		return errors.Wrap(err, "seed books")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedSessions(ctx, pool, userToken, adminToken, pepper); err != nil {
		return errors.Wrap(err, "seed sessions")
	}

	return nil
}

func seedBooks(ctx context.Context, pool *pgxpool.Pool, booksFile string) error {
	slog.Info("reading books file", slog.String("path", booksFile))

	data, err := os.ReadFile(booksFile)
	if err != nil {
		return errors.Wrap(err, "read books file")
	}

	var books []bookJSON
	if err := json.Unmarshal(data, &books); err != nil {
		return errors.Wrap(err, "parse books JSON")
	}

	slog.Info("inserting books", slog.Int("count", len(books)))

	for _, b := range books {
		_, err := pool.Exec(ctx, `INSERT INTO books (title, price, discount_percent, stock)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM books WHERE title = $1)`,
			b.Title, b.Price, b.DiscountPercent, b.Stock)
		if err != nil {
			return errors.Wrapf(err, "insert book %q", b.Title)
		}
	}

	return nil
}

type couponSeed struct {
	code       string
	percentage decimal.Decimal
	amount     decimal.Decimal
	maxOff     decimal.Decimal
	minOrder   decimal.Decimal
	validDays  int
	usageLimit *int
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	three := 3
	coupons := []couponSeed{
		{
			code:       "WELCOME10",
			percentage: decimal.NewFromInt(10),
			maxOff:     decimal.NewFromInt(50),
			validDays:  365,
		},
		{
			code:       "BOOKWORM",
			percentage: decimal.NewFromInt(20),
			amount:     decimal.NewFromInt(5),
			maxOff:     decimal.NewFromInt(30),
			minOrder:   decimal.NewFromInt(100),
			validDays:  90,
			usageLimit: &three,
		},
	}

	now := time.Now()
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `INSERT INTO coupons (code, percentage_discount,
				amount_discount, maximum_discount, min_order_amount,
				valid_from, valid_until, usage_limit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (code) DO NOTHING`,
			c.code, c.percentage, c.amount, c.maxOff, c.minOrder,
			now, now.AddDate(0, 0, c.validDays), c.usageLimit)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.code)
		}

		// Grant to user 1 so the seeded session can validate it.
		_, err = pool.Exec(ctx, `INSERT INTO user_coupons (user_id, coupon_id)
			SELECT 1, id FROM coupons WHERE code = $1
			ON CONFLICT (user_id, coupon_id) DO NOTHING`, c.code)
		if err != nil {
			return errors.Wrapf(err, "grant coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

func seedSessions(ctx context.Context, pool *pgxpool.Pool, userToken, adminToken, pepper string) error {
	sessions := []struct {
		token  string
		userID int64
		admin  bool
	}{
		{token: userToken, userID: 1, admin: false},
		{token: adminToken, userID: 1000, admin: true},
	}

	for _, s := range sessions {
		if s.token == "" {
			continue
		}
		_, err := pool.Exec(ctx, `INSERT INTO sessions (token_hash, user_id, is_admin)
			VALUES ($1, $2, $3)
			ON CONFLICT (token_hash) DO NOTHING`,
			hashToken(s.token, pepper), s.userID, s.admin)
		if err != nil {
			return errors.Wrapf(err, "insert session for user %d", s.userID)
		}

		slog.Info("seeded session", slog.Int64("user_id", s.userID), slog.Bool("admin", s.admin))
	}

	return nil
}

func hashToken(token, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
