package orchestration

import (
	"github.com/planwerk/mrp/pkg/domain/entities"
)

// ConstraintSnapshot records the original constraint type of every
// requirement relaxed during a run. Generated jobs run non-constraining so a
// half-finished resolution cannot destabilize the schedule; the snapshot puts
// everything back afterward, on the failure path too.
type ConstraintSnapshot struct {
	saved map[*entities.MaterialRequirement]entities.ConstraintType
}

// NewConstraintSnapshot creates an empty snapshot
func NewConstraintSnapshot() *ConstraintSnapshot {
	return &ConstraintSnapshot{
		saved: make(map[*entities.MaterialRequirement]entities.ConstraintType),
	}
}

// RelaxJob saves and relaxes every requirement of a generated job. Already
// relaxed requirements are left alone so the saved state is the true
// original.
func (s *ConstraintSnapshot) RelaxJob(job *entities.Job) {
	if !job.Generated {
		return
	}
	for _, req := range job.Requirements() {
		if _, ok := s.saved[req]; ok {
			continue
		}
		s.saved[req] = req.ConstraintType
		req.ConstraintType = entities.NonConstraining
	}
}

// Restore puts every relaxed requirement back to its original constraint
// type. Safe to call more than once.
func (s *ConstraintSnapshot) Restore() {
	for req, original := range s.saved {
		req.ConstraintType = original
	}
	s.saved = make(map[*entities.MaterialRequirement]entities.ConstraintType)
}
