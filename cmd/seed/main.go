package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/config"
	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/kpi"
	"github.com/merchkpi/dashboard/backend/internal/repository"
	"github.com/merchkpi/dashboard/backend/internal/seed"
	"github.com/merchkpi/dashboard/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "operation (1: ensure roles, 2: insert random merchandisers, 3: insert random daily records for this month, 4: import daily records from CSV)")
	flag.IntVar(&n, "n", 5, "number of merchandisers to insert")
	flag.StringVar(&file, "file", "", "CSV file for -op 4")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("could not load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.KPI.Timezone)
	if err != nil {
		logger.Error("invalid KPI timezone", slog.String("timezone", cfg.KPI.Timezone), slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("could not create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("could not connect to database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		slog.Error("no operation given")
	case 1:
		if err := repo.EnsureRoles(domain.Roles); err != nil {
			slog.Error("could not create roles", slog.String("error", err.Error()))
			return
		}
		slog.Info("roles ready", slog.Int("count", len(domain.Roles)))
	case 2:
		if n <= 0 {
			slog.Error("number of merchandisers must be positive")
			return
		}

		roleID, err := repo.GetRoleIDByName(domain.RoleMerchandiser)
		if err != nil {
			slog.Error("could not find merchandiser role, run -op 1 first", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain, roleID)
			if err != nil {
				slog.Error("could not generate user", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				slog.Error("could not insert user", slog.String("email", user.Email), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("merchandisers inserted", slog.Int("count", cnt))
	case 3:
		merchandisers, err := repo.GetUsersByRole(domain.RoleMerchandiser)
		if err != nil {
			slog.Error("could not list merchandisers", slog.String("error", err.Error()))
			return
		}

		today := kpi.Day(time.Now().In(loc))
		start, _ := kpi.MonthRange(today)

		cnt := 0
		for _, m := range merchandisers {
			for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
				if kpi.WorkingDays(day, day) == 0 {
					continue
				}

				rec := kpi.NewDailyRecord(m.ID, day, utils.GenerateRandomCounts(), int64(cfg.KPI.DailyTarget), nil, nil)
				if err := repo.UpsertDailyRecord(rec); err != nil {
					slog.Error("could not insert daily record", slog.Int64("user_id", m.ID), slog.String("error", err.Error()))
					continue
				}

				cnt++
			}
		}

		slog.Info("daily records inserted", slog.Int("count", cnt))
	case 4:
		if file == "" {
			slog.Error("-file is required for CSV import")
			return
		}

		result, err := seed.ImportDailyRecordsFile(repo, file, loc)
		if err != nil {
			slog.Error("CSV import failed", slog.Int("imported", result.Imported), slog.String("error", err.Error()))
			return
		}

		slog.Info("CSV import done", slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))
	default:
		slog.Error("unknown operation", slog.Int("op", op))
	}
}
