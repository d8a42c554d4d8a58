// Command devtoken mints an access token for local testing, e.g.
//
//	go run ./cmd/devtoken -sub 1 -role ADMIN -hotel 3
//
// The secret comes from JWT_SECRET (or .env).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
	"github.com/iliyamo/hotel-booking-engine/internal/utils"
)

func main() {
	_ = godotenv.Load()
	sub := flag.Uint64("sub", 0, "user id")
	role := flag.String("role", string(model.RoleGuest), "GUEST, STAFF or ADMIN")
	hotel := flag.Uint64("hotel", 0, "hotel id (required for STAFF and ADMIN)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(2)
	}
	if v := os.Getenv("DEV_TOKEN_TTL"); v != "" && !isFlagSet("ttl") {
		if d, err := time.ParseDuration(v); err == nil {
			*ttl = d
		}
	}

	p := model.Principal{UserID: *sub, Role: model.Role(strings.ToUpper(*role)), HotelID: *hotel}
	tok, err := utils.NewAccessToken(secret, p, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
