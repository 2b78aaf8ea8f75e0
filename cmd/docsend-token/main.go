// Command docsend-token mints a bearer token signed with JWT_SECRET, for
// local testing against a docsend instance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/docsend/pkg/jwtx"
)

func main() {
	subject := flag.String("sub", "", "owner id (required)")
	email := flag.String("email", "", "email claim")
	scopes := flag.String("scopes", "", "comma separated scopes; empty grants everything")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	signer, err := jwtx.NewHS256Signer(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("JWT_SECRET: %v", err)
	}

	var granted []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	var aud []string
	if a := os.Getenv("JWT_AUDIENCE"); a != "" {
		aud = []string{a}
	}

	claims := jwtx.NewAccessClaims(*subject, *email, granted, *ttl, os.Getenv("JWT_ISSUER"), aud, time.Now())
	tok, err := signer.Sign(claims)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok)
}
