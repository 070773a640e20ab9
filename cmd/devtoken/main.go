// devtoken prints a bearer token signed with JWT_SECRET for local testing.
//
//	go run ./cmd/devtoken --user 7 --role USER
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/expo-appointments/internal/config"
	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/utils"
)

func main() {
	user := pflag.Uint64P("user", "u", 0, "user id (sub claim)")
	role := pflag.StringP("role", "r", model.RoleUser, "USER or EXHIBITOR")
	ttl := pflag.Duration("ttl", time.Hour, "token lifetime")
	pflag.Parse()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *user == 0 {
		log.Fatal("--user is required")
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *user, *role, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok.Token)
}
