// Command seed loads rooms and demo accounts from a YAML file. It is safe to
// run repeatedly: rooms are matched by name and existing users are skipped.
package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"staycation/internal/config"
	"staycation/internal/database"
	"staycation/internal/domain"
	"staycation/internal/pkg/logger"
	"staycation/internal/pkg/validator"
	"staycation/internal/repository"
)

//go:embed rooms.yaml
var defaultSeed []byte

type seedUser struct {
	Email    string          `yaml:"email" validate:"required,email"`
	FullName string          `yaml:"full_name" validate:"required"`
	Password string          `yaml:"password" validate:"required,min=8"`
	Role     domain.UserRole `yaml:"role" validate:"required,oneof=client admin"`
}

type seedFile struct {
	Rooms []domain.Room `yaml:"rooms"`
	Users []seedUser    `yaml:"users"`
}

func main() {
	configPath := flag.String("config", "config.toml", "optional TOML config file")
	file := flag.String("file", "", "seed YAML (defaults to the bundled rooms.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	raw := defaultSeed
	if *file != "" {
		if raw, err = os.ReadFile(*file); err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("read seed file")
		}
	}
	seed, err := parseSeed(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid seed file")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	ctx := context.Background()
	rooms := repository.NewRoomRepository(db)
	for i := range seed.Rooms {
		room := &seed.Rooms[i]
		if err := rooms.Upsert(ctx, room); err != nil {
			log.Fatal().Err(err).Str("room", room.Name).Msg("upsert room")
		}
		log.Info().Int64("id", room.ID).Str("room", room.Name).Msg("room seeded")
	}

	users := repository.NewUserRepository(db)
	for _, su := range seed.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("hash password")
		}
		u := &domain.User{
			Email:         validator.NormalizeEmail(su.Email),
			FullName:      su.FullName,
			PasswordHash:  string(hash),
			Role:          su.Role,
			EmailVerified: true,
		}
		switch err := users.Create(ctx, u); {
		case errors.Is(err, repository.ErrDuplicate):
			log.Info().Str("email", u.Email).Msg("user exists, skipped")
		case err != nil:
			log.Fatal().Err(err).Str("email", u.Email).Msg("create user")
		default:
			log.Info().Str("email", u.Email).Str("role", string(u.Role)).Msg("user seeded")
		}
	}
}

func parseSeed(raw []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	var problems []string
	for i := range seed.Rooms {
		room := &seed.Rooms[i]
		if errs := validator.Validate(room); errs != nil {
			problems = append(problems, fmt.Sprintf("room %d (%s): %v", i, room.Name, errs))
		}
		if _, err := domain.ParseRoomType(string(room.RoomType)); err != nil {
			problems = append(problems, fmt.Sprintf("room %d (%s): %v", i, room.Name, err))
		}
	}
	for i, u := range seed.Users {
		if errs := validator.Validate(u); errs != nil {
			problems = append(problems, fmt.Sprintf("user %d (%s): %v", i, u.Email, errs))
		}
	}
	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return &seed, nil
}
