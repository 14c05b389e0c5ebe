// Command tokengen mints a capability token directly against the database.
// It exists for operators who need a portal or display link outside the API,
// for example re-sending an estimate link without logging in as the advisor.
// The raw token is printed once and never stored.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	billingstore "shopcore/internal/billing/store"
	"shopcore/internal/captoken"
	displaystore "shopcore/internal/display/store"
	"shopcore/internal/platform/database"
	"shopcore/internal/platform/logger"
)

func main() {
	var (
		kind    = flag.String("kind", "portal", "token kind: portal (subject is an estimate id) or display (subject is a tenant id)")
		subject = flag.String("subject", "", "subject uuid")
		ttl     = flag.Duration("ttl", 0, "token lifetime (default 72h portal, 24h display)")
	)
	flag.Parse()

	log := logger.New()

	subjectID, err := uuid.Parse(*subject)
	if err != nil {
		log.Error("invalid -subject", "error", err)
		os.Exit(2)
	}

	pool, err := database.New(database.DefaultConfig(os.Getenv("DATABASE_URL")))
	if err != nil || pool == nil {
		log.Error("DATABASE_URL is required", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var slots captoken.SlotStore
	lifetime := *ttl
	switch *kind {
	case "portal":
		slots = billingstore.NewPostgres(pool.DB())
		if lifetime == 0 {
			lifetime = 72 * time.Hour
		}
	case "display":
		slots = displaystore.NewPostgres(pool.DB())
		if lifetime == 0 {
			lifetime = 24 * time.Hour
		}
	default:
		log.Error("unknown -kind", "kind", *kind)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := captoken.New(slots, captoken.WithLogger(log)).Generate(ctx, subjectID, lifetime)
	if err != nil {
		log.Error("token generation failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(raw)
	log.Info("token generated", "kind", *kind, "subject", subjectID, "expires_at", time.Now().UTC().Add(lifetime))
}
