package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
	"github.com/hackgods/clinic-appointment-triage/internal/logger"
)

type SimConfig struct {
	APIBaseURL     string
	Duration       time.Duration
	Workers        int
	BookingRatio   float64
	DecideRatio    float64
	EmergencyRatio float64
	ReadRatio      float64
	Patients       int
	Days           int
}

type booked struct {
	ID        uuid.UUID
	PatientID uuid.UUID
}

// DataPool holds the generated patients and the appointments created so far.
type DataPool struct {
	Patients []uuid.UUID
	Dates    []string

	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[len(latencies)*95/100]
	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking        OperationMetrics
	Decide         OperationMetrics
	Emergency      OperationMetrics
	ReadByID       OperationMetrics
	ListByPatient  OperationMetrics
	Availability   OperationMetrics
	EmergencyQueue OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	log     *zap.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(getEnv("LOG_LEVEL", "info"), "console", "simulate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	log.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("decide", cfg.DecideRatio),
		zap.Float64("emergency", cfg.EmergencyRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	sim := &Simulator{
		config: cfg,
		pool:   newDataPool(cfg, time.Now()),
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:     getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 10),
		BookingRatio:   getFloat("SIM_BOOKING_RATIO", 0.4),
		DecideRatio:    getFloat("SIM_DECIDE_RATIO", 0.2),
		EmergencyRatio: getFloat("SIM_EMERGENCY_RATIO", 0.1),
		ReadRatio:      getFloat("SIM_READ_RATIO", 0.3),
		Patients:       getInt("SIM_PATIENTS", 500),
		Days:           getInt("SIM_DAYS", 5),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.DecideRatio + cfg.EmergencyRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.DecideRatio /= total
		cfg.EmergencyRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 || cfg.Days <= 0 {
		return fmt.Errorf("SIM_PATIENTS and SIM_DAYS must be > 0")
	}
	return nil
}

// newDataPool generates patient ids and the booking window starting tomorrow,
// so every date is in the future for the server.
func newDataPool(cfg SimConfig, now time.Time) *DataPool {
	dp := &DataPool{}
	for range cfg.Patients {
		dp.Patients = append(dp.Patients, uuid.New())
	}
	today := appointment.DateOf(now)
	for d := 1; d <= cfg.Days; d++ {
		dp.Dates = append(dp.Dates, today.AddDate(0, 0, d).Format(appointment.DateLayout))
	}
	return dp
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	cumulative := []float64{
		s.config.BookingRatio,
		s.config.BookingRatio + s.config.DecideRatio,
		s.config.BookingRatio + s.config.DecideRatio + s.config.EmergencyRatio,
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < cumulative[0]:
			s.doBooking(ctx, rng)
		case r < cumulative[1]:
			s.doDecide(ctx, rng)
		case r < cumulative[2]:
			s.doEmergency(ctx, rng)
		default:
			switch rng.Intn(4) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doListByPatient(ctx, rng)
			case 2:
				s.doAvailability(ctx, rng)
			case 3:
				s.doEmergencyQueue(ctx)
			}
		}
	}
}

// call sends body as JSON and decodes a 2xx response into out.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, time.Duration, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	}
	return resp.StatusCode, latency, nil
}

var (
	services      = []string{"General Consultation", "Dental", "Physiotherapy", "Vaccination", "Eye Exam"}
	rejectReasons = []string{"clinician unavailable", "referral required", "duplicate request"}
	complaints    = []string{"collapsed during training", "cut on the hand", "wheezing after exercise", "high fever since morning", "rash after medication"}
)

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	status, latency, err := s.call(ctx, http.MethodPost, "/appointments", map[string]string{
		"patient_id":       patientID.String(),
		"service":          gofakeit.RandomString(services),
		"appointment_date": s.pool.Dates[rng.Intn(len(s.pool.Dates))],
		"time_slot":        appointment.TimeSlots[rng.Intn(len(appointment.TimeSlots))],
		"notes":            "booked by " + gofakeit.Name(),
	}, &created)

	if err == nil && status == http.StatusCreated && created.ID != uuid.Nil {
		s.pool.AddAppointment(booked{ID: created.ID, PatientID: patientID})
	}
	s.metrics.Booking.Record(latency, status, err)
}

// doDecide approves, rejects or patient-cancels a known appointment. Losing a
// race to another worker shows up as a conflict.
func (s *Simulator) doDecide(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	base := "/appointments/" + b.ID.String()
	var (
		status  int
		latency time.Duration
		err     error
	)
	switch rng.Intn(4) {
	case 0, 1:
		status, latency, err = s.call(ctx, http.MethodPost, base+"/approve", nil, nil)
	case 2:
		status, latency, err = s.call(ctx, http.MethodPost, base+"/reject",
			map[string]string{"reason": gofakeit.RandomString(rejectReasons)}, nil)
	default:
		status, latency, err = s.call(ctx, http.MethodPost, base+"/cancel",
			map[string]string{"patient_id": b.PatientID.String(), "reason": "schedule changed"}, nil)
	}
	s.metrics.Decide.Record(latency, status, err)
}

func (s *Simulator) doEmergency(ctx context.Context, rng *rand.Rand) {
	priorities := []emergency.Priority{emergency.PriorityImmediate, emergency.PriorityUrgent, emergency.PriorityStandard}
	pain := rng.Intn(11)

	status, latency, err := s.call(ctx, http.MethodPost, "/emergencies", map[string]any{
		"patient_id":     s.pool.Patients[rng.Intn(len(s.pool.Patients))].String(),
		"emergency_type": emergency.Types[rng.Intn(len(emergency.Types))],
		"priority":       priorities[rng.Intn(len(priorities))],
		"description":    gofakeit.RandomString(complaints),
		"pain_level":     pain,
		"duty_related":   gofakeit.Bool(),
	}, nil)
	s.metrics.Emergency.Record(latency, status, err)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	status, latency, err := s.call(ctx, http.MethodGet, "/appointments/"+b.ID.String(), nil, nil)
	s.metrics.ReadByID.Record(latency, status, err)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	status, latency, err := s.call(ctx, http.MethodGet,
		"/appointments?patient_id="+patientID.String()+"&limit=20&offset=0", nil, nil)
	s.metrics.ListByPatient.Record(latency, status, err)
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	q := url.Values{}
	q.Set("date", s.pool.Dates[rng.Intn(len(s.pool.Dates))])
	q.Set("time_slot", appointment.TimeSlots[rng.Intn(len(appointment.TimeSlots))])
	status, latency, err := s.call(ctx, http.MethodGet, "/slots/availability?"+q.Encode(), nil, nil)
	s.metrics.Availability.Record(latency, status, err)
}

func (s *Simulator) doEmergencyQueue(ctx context.Context) {
	status, latency, err := s.call(ctx, http.MethodGet, "/emergencies?exclude_resolved=true", nil, nil)
	s.metrics.EmergencyQueue.Record(latency, status, err)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Approve / Reject / Cancel", &s.metrics.Decide)
	printOperationReport("Emergency submit", &s.metrics.Emergency)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
	printOperationReport("Slot availability", &s.metrics.Availability)
	printOperationReport("Emergency queue", &s.metrics.EmergencyQueue)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
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

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
