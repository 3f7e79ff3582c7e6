package emergency

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeChestPain           Type = "chest_pain"
	TypeBreathingDifficulty Type = "breathing_difficulty"
	TypeSevereBleeding      Type = "severe_bleeding"
	TypeInjury              Type = "injury"
	TypeAllergicReaction    Type = "allergic_reaction"
	TypeHeatIllness         Type = "heat_illness"
	TypeFever               Type = "fever"
	TypeOther               Type = "other"
)

var Types = []Type{
	TypeChestPain,
	TypeBreathingDifficulty,
	TypeSevereBleeding,
	TypeInjury,
	TypeAllergicReaction,
	TypeHeatIllness,
	TypeFever,
	TypeOther,
}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityUrgent    Priority = "urgent"
	PriorityStandard  Priority = "standard"
)

// rank orders the queue; lower is served first.
func (p Priority) rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityUrgent:
		return 1
	case PriorityStandard:
		return 2
	}
	return 3
}

func (p Priority) Valid() bool {
	return p.rank() < 3
}

type Status string

const (
	StatusReported   Status = "reported"
	StatusTriaged    Status = "triaged"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusReferred   Status = "referred"
)

// stage is the position of a status along the triage path. resolved and
// referred are alternative ends and share the last stage.
func (s Status) stage() int {
	switch s {
	case StatusReported:
		return 0
	case StatusTriaged:
		return 1
	case StatusInProgress:
		return 2
	case StatusResolved, StatusReferred:
		return 3
	}
	return -1
}

func (s Status) Valid() bool {
	return s.stage() >= 0
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusReferred
}

// CanAdvance reports whether a record in s may move to next. Moves only go
// forward; there is no reopen.
func (s Status) CanAdvance(next Status) bool {
	return next.Valid() && s.Valid() && next.stage() > s.stage()
}

type Record struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	Type        Type
	Priority    Priority
	Description string
	PainLevel   *int
	Symptoms    []string
	DutyRelated bool
	HandledBy   *string
	Resolution  string
	Status      Status
	ReportedAt  time.Time
	ResolvedAt  *time.Time
	UpdatedAt   time.Time
}

// Filter narrows a queue listing.
type Filter struct {
	ExcludeResolved bool
}

// Update is what a triage step writes. Nil pointers leave stored values
// untouched, except ResolvedAt which is always written.
type Update struct {
	Status     Status
	Priority   *Priority
	HandledBy  *string
	Resolution *string
	ResolvedAt *time.Time
}
