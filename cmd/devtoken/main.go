// Command devtoken prints a Bearer token for local testing. Identity is owned by the
// account service in deployed environments; this only signs with the shared secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"eventease/config"
	"eventease/internal/adapters/auth"
)

func main() {
	userID := flag.String("user", "", "user ID to put in the sub claim (required)")
	email := flag.String("email", "", "optional e-mail claim")
	roles := flag.String("roles", "", "comma-separated roles")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if strings.TrimSpace(*userID) == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(*userID, *email, roleList, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
