// Command token prints a bearer token for the API signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/middleware"
)

func main() {
	subject := flag.String("sub", "", "token subject, recorded as the creator of tasks")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	token, err := middleware.IssueToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("failed to issue token")
	}
	fmt.Println(token)
}
