// Command token issues a signed bearer token for local development.
//
//	go run ./cmd/token -sub u-1 -role officer
package main

import (
	"flag"
	"fmt"
	"os"

	"loanflow/internal/config"
	"loanflow/internal/domain/identity"
	"loanflow/internal/infrastructure/auth"
)

func main() {
	sub := flag.String("sub", "", "token subject (user id)")
	role := flag.String("role", "", "role claim")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *sub == "" || cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "usage: token -sub <id> [-role <role>] (JWT_SECRET must be set)")
		os.Exit(2)
	}

	tok, err := auth.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL).
		Sign(identity.Principal{Subject: *sub, Role: identity.Role(*role)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
