// Package seed fills a fresh environment with fake bookings and emergency
// reports, created through the services so every row is valid.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
)

type Options struct {
	Patients     int
	Appointments int
	Emergencies  int
	Days         int       // booking window starts the day after From
	From         time.Time // clinic-local now
}

type Result struct {
	Patients    []uuid.UUID
	Booked      int
	Approved    int
	Collisions  int
	Emergencies int
	Triaged     int
}

type Seeder struct {
	appointments *appointment.Service
	emergencies  *emergency.Queue
	faker        *gofakeit.Faker
	log          *zap.Logger
}

// New builds a seeder. A zero seed draws from the clock.
func New(appointments *appointment.Service, emergencies *emergency.Queue, seed uint64, log *zap.Logger) *Seeder {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{
		appointments: appointments,
		emergencies:  emergencies,
		faker:        gofakeit.New(seed),
		log:          log,
	}
}

var services = []string{
	"General Consultation",
	"Dental Checkup",
	"Physiotherapy",
	"Vaccination",
	"Eye Examination",
	"Medical Fitness Assessment",
	"Mental Health Counselling",
	"Dermatology",
}

var complaints = map[emergency.Type][]string{
	emergency.TypeChestPain:           {"tight chest after morning run", "sharp pain radiating to left arm"},
	emergency.TypeBreathingDifficulty: {"wheezing after drill", "short of breath at rest"},
	emergency.TypeSevereBleeding:      {"deep cut on forearm", "nosebleed that will not stop"},
	emergency.TypeInjury:              {"twisted ankle on obstacle course", "fall from climbing wall"},
	emergency.TypeAllergicReaction:    {"swelling after bee sting", "hives after lunch"},
	emergency.TypeHeatIllness:         {"dizzy and confused after march", "stopped sweating in the heat"},
	emergency.TypeFever:               {"fever and chills since last night", "high temperature with headache"},
	emergency.TypeOther:               {"feels faint", "severe stomach cramps"},
}

// Run books appointments on random days and slots, approving roughly half,
// and submits emergency reports, triaging some of them. Slot collisions are
// expected and counted rather than treated as failures.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Patients <= 0 || opts.Days <= 0 {
		return Result{}, errors.New("patients and days must be positive")
	}

	var res Result
	for range opts.Patients {
		res.Patients = append(res.Patients, uuid.New())
	}
	first := appointment.DateOf(opts.From).AddDate(0, 0, 1)

	for i := 0; i < opts.Appointments; i++ {
		a, err := s.appointments.Create(ctx, appointment.CreateInput{
			PatientID: res.Patients[s.faker.Number(0, len(res.Patients)-1)],
			Service:   s.faker.RandomString(services),
			Date:      first.AddDate(0, 0, s.faker.Number(0, opts.Days-1)),
			TimeSlot:  s.faker.RandomString(appointment.TimeSlots),
			Notes:     "requested by " + s.faker.Name(),
		})
		if errors.Is(err, apperr.ErrConflict) {
			res.Collisions++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("book appointment %d: %w", i, err)
		}
		res.Booked++

		if s.faker.Bool() {
			if _, err := s.appointments.Approve(ctx, a.ID); err != nil {
				return res, fmt.Errorf("approve %s: %w", a.ID, err)
			}
			res.Approved++
		}
	}

	priorities := []emergency.Priority{emergency.PriorityImmediate, emergency.PriorityUrgent, emergency.PriorityStandard}
	for i := 0; i < opts.Emergencies; i++ {
		kind := emergency.Types[s.faker.Number(0, len(emergency.Types)-1)]
		pain := s.faker.Number(emergency.MinPainLevel, emergency.MaxPainLevel)

		rec, err := s.emergencies.Submit(ctx, emergency.Report{
			PatientID:   res.Patients[s.faker.Number(0, len(res.Patients)-1)],
			Type:        kind,
			Priority:    priorities[s.faker.Number(0, len(priorities)-1)],
			Description: s.faker.RandomString(complaints[kind]),
			PainLevel:   &pain,
			DutyRelated: s.faker.Bool(),
		})
		if err != nil {
			return res, fmt.Errorf("submit emergency %d: %w", i, err)
		}
		res.Emergencies++

		if s.faker.Number(0, 2) == 0 {
			if _, err := s.emergencies.Advance(ctx, rec.ID, emergency.StatusTriaged, emergency.StaffFields{
				HandledBy: "Nurse " + s.faker.LastName(),
			}); err != nil {
				return res, fmt.Errorf("triage %s: %w", rec.ID, err)
			}
			res.Triaged++
		}
	}

	s.log.Info("seed complete",
		zap.Int("patients", len(res.Patients)),
		zap.Int("booked", res.Booked),
		zap.Int("approved", res.Approved),
		zap.Int("collisions", res.Collisions),
		zap.Int("emergencies", res.Emergencies),
		zap.Int("triaged", res.Triaged))

	return res, nil
}
