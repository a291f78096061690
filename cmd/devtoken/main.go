// Command devtoken prints a signed access token for local testing of the
// records and audit endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwttoken "companyapp/internal/jwt_token"
	"companyapp/internal/platform/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	var id jwttoken.Identity
	flag.StringVar(&id.UserID, "user", "dev-user", "subject (user ID)")
	flag.StringVar(&id.Name, "name", "", "display name")
	flag.StringVar(&id.Email, "email", "dev@example.com", "email claim")
	flag.StringVar(&id.Role, "role", "", `role claim, "Admin" unlocks /admin/audit-logs`)
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := svc.GenerateAccessToken(id, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
