package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
)

// Selector classifies assignments into the maintain and clone work lists.
// Maintain covers open assignments needing group/folder upkeep; clone covers
// assignments whose student submissions should be copied for grading. An
// assignment can be in both lists or neither.
type Selector struct {
	outcomeID int
	runStart  time.Time
	logger    *zap.Logger
}

// NewSelector constructs a Selector anchored at the run start time.
func NewSelector(outcomeID int, runStart time.Time, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{outcomeID: outcomeID, runStart: runStart, logger: logger}
}

// Partition splits assignments into maintain and clone lists. Unpublished
// assignments and assignments whose rubric does not link the target outcome
// are ignored entirely.
func (s *Selector) Partition(assignments []models.Assignment) (maintain, clone []models.Assignment) {
	for _, a := range assignments {
		if !a.Published {
			s.logger.Debug("skipping unpublished assignment", zap.String("assignment", a.Name))
			continue
		}
		if !s.hasTargetOutcome(a) {
			s.logger.Debug("assignment rubric does not link target outcome", zap.String("assignment", a.Name))
			continue
		}

		expiration := s.expirationTime(a)

		// Clone check runs before the expiry check: a closed assignment is
		// exactly the one whose submissions need grading copies.
		if s.shouldClone(a) {
			clone = append(clone, a)
		}

		if expiration.Before(s.runStart) {
			s.logger.Debug("skipping expired assignment", zap.String("assignment", a.Name))
			continue
		}

		maintain = append(maintain, a)
	}

	return maintain, clone
}

func (s *Selector) hasTargetOutcome(a models.Assignment) bool {
	for _, criterion := range a.Rubric {
		if criterion.OutcomeID == s.outcomeID {
			return true
		}
	}
	return false
}

// expirationTime picks the assignment's effective close time: the lock time
// when set, otherwise the due time, otherwise the run start.
func (s *Selector) expirationTime(a models.Assignment) time.Time {
	if a.LockAt != nil {
		return *a.LockAt
	}
	if a.DueAt != nil {
		return *a.DueAt
	}
	return s.runStart
}

// shouldClone is the clone-eligibility predicate. The current rule treats any
// assignment with a due date as gradable.
// TODO: confirm the intended grading-window rule with stakeholders; a due date
// alone may over-select.
func (s *Selector) shouldClone(a models.Assignment) bool {
	return a.DueAt != nil
}
