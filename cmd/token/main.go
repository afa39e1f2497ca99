// Command token mints a bearer token for a portal member, registering the
// member first when the email is unknown.
//
//	token -email anna@example.com -first Anna -last Nowak -role ADMIN
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/auth"
	"parish-portal/internal/config"
	"parish-portal/internal/model"
	"parish-portal/internal/pkg/db"
	"parish-portal/internal/repository"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		email     = flag.String("email", "", "member email (required)")
		firstName = flag.String("first", "", "first name for a new member")
		lastName  = flag.String("last", "", "last name for a new member")
		role      = flag.String("role", string(model.RoleUser), "role for a new member: USER, LEADER or ADMIN")
		dir       = flag.String("config", "config", "config directory")
	)
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}
	r := model.Role(strings.ToUpper(*role))
	if !r.Valid() {
		log.Fatal().Str("role", *role).Msg("Unknown role")
	}

	cfg, err := config.Load(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	users := repository.NewStore(pool.Pool).Users
	u, err := users.GetByEmail(ctx, *email)
	if errors.Is(err, repository.ErrUserNotFound) {
		u, err = users.Create(ctx, repository.NewUser{
			Email:     *email,
			FirstName: *firstName,
			LastName:  *lastName,
			Role:      r,
		})
		if err == nil {
			log.Warn().Str("user_id", u.ID.String()).Msg("Registered new member")
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load member")
	}

	tokens, err := auth.New(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tokens")
	}
	token, err := tokens.Issue(auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Println(token)
}
