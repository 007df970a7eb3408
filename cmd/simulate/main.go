// Command simulate fires competing booking requests at a small set of exact
// slots and verifies afterwards, straight from the database, that no slot
// ended up with more than one non-cancelled appointment.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careloop/consultation-scheduling/internal/db"
)

type simConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	SlotCount   int
	PostgresDSN string
}

type metrics struct {
	total     int64
	booked    int64
	conflicts int64
	errors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflicts, 1)
	default:
		atomic.AddInt64(&m.errors, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type slot struct {
	PractitionerID uuid.UUID
	Date           string
	Time           string
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "simulate").Logger()

	cfg := simConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 16),
		SlotCount:   getInt("SIM_SLOTS", 25),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	practitioners, err := loadIDs(pool, `SELECT id FROM practitioners WHERE status = 'active' LIMIT 20`)
	if err != nil || len(practitioners) == 0 {
		logger.Fatal().Err(err).Msg("load practitioners (run cmd/seed first)")
	}
	patients, err := loadIDs(pool, `SELECT id FROM patients LIMIT 500`)
	if err != nil || len(patients) == 0 {
		logger.Fatal().Err(err).Msg("load patients (run cmd/seed first)")
	}

	// A deliberately tiny slot pool so workers collide constantly.
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	slots := make([]slot, 0, cfg.SlotCount)
	for i := 0; i < cfg.SlotCount; i++ {
		slots = append(slots, slot{
			PractitionerID: practitioners[i%len(practitioners)],
			Date:           tomorrow,
			Time:           fmt.Sprintf("%02d:%02d", 9+i/4, (i%4)*15),
		})
	}

	logger.Info().
		Int("workers", cfg.Workers).
		Int("slots", len(slots)).
		Dur("duration", cfg.Duration).
		Msg("starting booking contention run")

	var m metrics
	client := &http.Client{Timeout: 10 * time.Second}
	runCtx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				bookOnce(runCtx, client, cfg.APIBaseURL, slots[rng.Intn(len(slots))], patients[rng.Intn(len(patients))], &m)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	logger.Info().
		Int64("total", atomic.LoadInt64(&m.total)).
		Int64("booked", atomic.LoadInt64(&m.booked)).
		Int64("conflicts", atomic.LoadInt64(&m.conflicts)).
		Int64("errors", atomic.LoadInt64(&m.errors)).
		Dur("p50", m.percentile(50)).
		Dur("p95", m.percentile(95)).
		Msg("run complete")

	// The invariant that matters: every slot holds at most one non-cancelled
	// appointment, no matter how the race went.
	var violations int
	err = pool.QueryRow(context.Background(), `
		SELECT count(*) FROM (
			SELECT practitioner_id, visit_date, visit_minute
			FROM appointments
			WHERE status <> 'cancelled'
			GROUP BY practitioner_id, visit_date, visit_minute
			HAVING count(*) > 1
		) doubled
	`).Scan(&violations)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify invariant")
	}
	if violations > 0 {
		logger.Fatal().Int("violations", violations).Msg("DOUBLE BOOKING DETECTED")
	}
	logger.Info().Msg("no double bookings detected")
}

func bookOnce(ctx context.Context, client *http.Client, baseURL string, s slot, patientID uuid.UUID, m *metrics) {
	body, _ := json.Marshal(map[string]string{
		"practitioner_id": s.PractitionerID.String(),
		"patient_id":      patientID.String(),
		"date":            s.Date,
		"time":            s.Time,
		"kind":            "in_person",
		"reason":          "load simulation",
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			m.record(latency, 0)
		}
		return
	}
	defer resp.Body.Close()

	m.record(latency, resp.StatusCode)
}

func loadIDs(pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(context.Background(), query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
