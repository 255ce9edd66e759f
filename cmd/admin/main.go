package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/core/config"
	"hrms-backend/internal/core/database"
	"hrms-backend/internal/core/logger"
	"hrms-backend/internal/feature/worklog"
	"hrms-backend/internal/repo"
	"hrms-backend/internal/service"
)

const usage = `usage: hrms-admin <command> [flags]

commands:
  seed      ensure core roles exist; with --email also create or promote a super admin
  migrate   run schema migrations only
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]
	if cmd != "seed" && cmd != "migrate" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	cfgPath := fs.String("config", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	email := fs.String("email", "", "super admin email")
	password := fs.String("password", "", "super admin password (default $HRMS_ADMIN_PASSWORD)")
	name := fs.String("name", "Super Admin", "super admin display name")
	_ = fs.Parse(os.Args[2:])

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             logger.ToStdLogger(log.Named("gorm"), zapcore.InfoLevel),
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := repo.Migrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	if err := worklog.Migrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	switch cmd {
	case "migrate":
		log.Info("migrate done", zap.String("driver", cfg.DB.Driver))
	case "seed":
		store := repo.NewStore(db)
		users := service.NewUserService(service.Deps{
			Store:  store,
			Hasher: auth.NewHasher(cfg.Auth.BcryptCost),
			Roles:  service.NewRoleService(store, cfg.Auth.DefaultRole, cfg.Auth.RoleVocabulary),
			Log:    log,
		})

		var admin *service.SuperAdmin
		if *email != "" {
			pw := *password
			if pw == "" {
				pw = os.Getenv("HRMS_ADMIN_PASSWORD")
			}
			admin = &service.SuperAdmin{Email: *email, Password: pw, FullName: *name}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := users.Seed(ctx, admin)
		if err != nil {
			log.Fatal("seed failed", zap.Error(err))
		}
		log.Info("roles ensured", zap.Strings("roles", res.Roles))
		if res.Admin != nil {
			log.Info("super admin ready",
				zap.String("user_id", res.Admin.UserID),
				zap.String("email", res.Admin.Email),
				zap.Bool("created", res.Created),
				zap.Strings("roles", res.Admin.Roles),
			)
		}
	}
}
