package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pennyrush/pennyrush/go/internal/dbconfig"
)

// SeedAuction mirrors the JSON fixture structure.
type SeedAuction struct {
	DisplayID         string `json:"display_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	ImageURL          string `json:"image_url"`
	RetailPriceCents  int64  `json:"retail_price_cents"`
	StartPriceCents   int64  `json:"start_price_cents"`
	BidIncrementCents int64  `json:"bid_increment_cents"`
	StartsInSeconds   int    `json:"starts_in_seconds"`
}

// SeedUser mirrors the JSON fixture structure.
type SeedUser struct {
	Username   string `json:"username"`
	BidBalance int    `json:"bid_balance"`
}

type seedFile struct {
	Auctions []SeedAuction `json:"auctions"`
	Users    []SeedUser    `json:"users"`
}

func main() {
	path := "go/internal/assets/auctions.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var inserted, skipped, errs int

	for _, u := range seed.Users {
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO users (id, username, bid_balance)
            VALUES ($1, $2, $3)
            ON CONFLICT (username) DO NOTHING
        `, uuid.New(), u.Username, u.BidBalance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting user %s: %v\n", u.Username, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	now := time.Now()
	for _, a := range seed.Auctions {
		startTime := now.Add(time.Duration(a.StartsInSeconds) * time.Second)
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO auctions (
              id, display_id, title, description, image_url,
              retail_price_cents, start_price_cents, current_price_cents,
              bid_increment_cents, status, start_time
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$7,$8,'upcoming',$9
            )
            ON CONFLICT (display_id) DO NOTHING
        `,
			uuid.New(), a.DisplayID, a.Title, a.Description, a.ImageURL,
			a.RetailPriceCents, a.StartPriceCents, a.BidIncrementCents, startTime,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting auction %s: %v\n", a.DisplayID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf("seed complete: %d inserted, %d skipped, %d errors\n", inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
