package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careloop/consultation-scheduling/internal/db"
	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

func main() {
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	gofakeit.Seed(time.Now().UnixNano())

	practitionerIDs, err := seedPractitioners(context.Background(), pool, 50)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedWindows(context.Background(), pool, practitionerIDs); err != nil {
		logger.Fatal().Err(err).Msg("seed availability windows")
	}

	logger.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding practitioners")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		// A small share of inactive accounts so availability queries have
		// something to filter out.
		status := scheduling.PractitionerActive
		if gofakeit.Number(0, 9) == 0 {
			status = scheduling.PractitionerInactive
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, status)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("practitioners seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedWindows gives each practitioner a plausible weekly schedule: a morning
// and an afternoon window on a few weekdays, non-overlapping by
// construction.
func seedWindows(ctx context.Context, pool *pgxpool.Pool, practitionerIDs []uuid.UUID) error {
	logger.Info().Int("practitioners", len(practitionerIDs)).Msg("seeding availability windows")

	days := []scheduling.DayOfWeek{
		scheduling.Monday, scheduling.Tuesday, scheduling.Wednesday,
		scheduling.Thursday, scheduling.Friday,
	}
	intervals := []int{10, 15, 20, 30}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, pid := range practitionerIDs {
		workdays := gofakeit.Number(3, 5)
		for d := 0; d < workdays; d++ {
			day := days[d]
			interval := intervals[gofakeit.Number(0, len(intervals)-1)]

			morningStart := scheduling.MinutesOfDay(gofakeit.Number(7, 9), 0)
			morningEnd := scheduling.MinutesOfDay(12, 0)
			afternoonStart := scheduling.MinutesOfDay(14, 0)
			afternoonEnd := scheduling.MinutesOfDay(gofakeit.Number(17, 20), 0)

			for _, span := range [][2]scheduling.TimeOfDay{
				{morningStart, morningEnd},
				{afternoonStart, afternoonEnd},
			} {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_windows
						(id, practitioner_id, day_of_week, start_minute, end_minute, slot_interval_minutes, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, 'active', now(), now())
				`, uuid.New(), pid, day, int(span[0]), int(span[1]), interval)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("availability windows seeded")
	return nil
}
