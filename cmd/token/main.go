package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"rider-agent/internal/common/jwt"
)

func main() {
	var (
		riderID = flag.String("rider-id", "", "UUID of the rider (subject)")
		secret  = flag.String("secret", "", "JWT HMAC secret (HS256)")
		ttl     = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
		out     = flag.String("out", "", "Write the token to this file instead of stdout")
	)
	flag.Parse()

	if *riderID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: token --rider-id=<uuid> --secret='<secret>' [--ttl=2h] [--out=token.jwt]")
		os.Exit(2)
	}

	mgr := jwt.NewManager(*secret, *ttl)
	token, claims, err := mgr.IssueRiderToken(*riderID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(token+"\n"), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Printf("token written to %s\n", *out)
	} else {
		fmt.Println("TOKEN:")
		fmt.Println(token)
	}

	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:  %s\n", claims.Subject)
	fmt.Printf("  role: %s\n", claims.Role)
	fmt.Printf("  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
