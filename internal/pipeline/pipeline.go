// Package pipeline orchestrates command execution: validate, consult the
// idempotency store, load aggregates, apply the business operation,
// persist with optimistic version checks, cache the result and dispatch
// raised events.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/dispatch"
	"github.com/noah-isme/uni-registrar-api/internal/domain"
	"github.com/noah-isme/uni-registrar-api/internal/idempotency"
	"github.com/noah-isme/uni-registrar-api/internal/metrics"
	"github.com/noah-isme/uni-registrar-api/pkg/clock"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
	"github.com/noah-isme/uni-registrar-api/pkg/middleware/requestid"
)

// StudentRepository loads and saves the Student aggregate. Save must
// fail with appErrors.ErrVersionConflict when expectedVersion no longer
// matches the persisted row.
type StudentRepository interface {
	Load(ctx context.Context, id string) (*domain.Student, error)
	Save(ctx context.Context, student *domain.Student, expectedVersion int64) error
}

// OfferingRepository loads and saves course offerings with the same
// version-check contract as StudentRepository.
type OfferingRepository interface {
	Load(ctx context.Context, id string) (*domain.CourseOffering, error)
	Save(ctx context.Context, offering *domain.CourseOffering, expectedVersion int64) error
}

// CourseRepository reads catalog entries. The pipeline never mutates the
// course catalog.
type CourseRepository interface {
	Load(ctx context.Context, id string) (*domain.Course, error)
}

// EventSink receives raised events after the state change is committed.
type EventSink interface {
	Dispatch(ctx context.Context, events []domain.DomainEvent) []dispatch.Outcome
}

// Config carries the pipeline tuning knobs as explicit typed values.
type Config struct {
	CreditCeiling   int
	IdempotencyTTL  time.Duration
	ConflictRetries int
}

// Pipeline executes registrar commands with per-aggregate serialization.
// Lock order is always student before offering so concurrent commands
// cannot deadlock.
type Pipeline struct {
	students  StudentRepository
	offerings OfferingRepository
	courses   CourseRepository
	idem      idempotency.Store
	events    EventSink

	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      clock.Clock

	creditCeiling   int
	idemTTL         time.Duration
	conflictRetries int

	studentLocks  *keyedMutex
	offeringLocks *keyedMutex
}

// New constructs a Pipeline.
func New(
	students StudentRepository,
	offerings OfferingRepository,
	courses CourseRepository,
	idem idempotency.Store,
	events EventSink,
	cfg Config,
	validate *validator.Validate,
	logger *zap.Logger,
	m *metrics.Metrics,
	now clock.Clock,
) *Pipeline {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = clock.System()
	}
	if cfg.CreditCeiling <= 0 {
		cfg.CreditCeiling = domain.DefaultCreditCeiling
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	return &Pipeline{
		students:        students,
		offerings:       offerings,
		courses:         courses,
		idem:            idem,
		events:          events,
		validate:        validate,
		logger:          logger,
		metrics:         m,
		now:             now,
		creditCeiling:   cfg.CreditCeiling,
		idemTTL:         cfg.IdempotencyTTL,
		conflictRetries: cfg.ConflictRetries,
		studentLocks:    newKeyedMutex(),
		offeringLocks:   newKeyedMutex(),
	}
}

// EnrollStudent executes the enrollment command.
func (p *Pipeline) EnrollStudent(ctx context.Context, cmd EnrollStudentCommand) (*EnrollResult, error) {
	result := &EnrollResult{}
	err := p.execute(ctx, CommandEnrollStudent, cmd.IdempotencyKey, cmd, result, func(ctx context.Context) ([]domain.DomainEvent, error) {
		return p.withConflictRetry(ctx, func(ctx context.Context) ([]domain.DomainEvent, error) {
			return p.enrollOnce(ctx, cmd, result)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignGrade executes the grade assignment command.
func (p *Pipeline) AssignGrade(ctx context.Context, cmd AssignGradeCommand) (*AssignGradeResult, error) {
	result := &AssignGradeResult{}
	err := p.execute(ctx, CommandAssignGrade, cmd.IdempotencyKey, cmd, result, func(ctx context.Context) ([]domain.DomainEvent, error) {
		return p.withConflictRetry(ctx, func(ctx context.Context) ([]domain.DomainEvent, error) {
			return p.assignGradeOnce(ctx, cmd, result)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw executes the withdrawal command.
func (p *Pipeline) Withdraw(ctx context.Context, cmd WithdrawCommand) (*WithdrawResult, error) {
	result := &WithdrawResult{}
	err := p.execute(ctx, CommandWithdraw, cmd.IdempotencyKey, cmd, result, func(ctx context.Context) ([]domain.DomainEvent, error) {
		return p.withConflictRetry(ctx, func(ctx context.Context) ([]domain.DomainEvent, error) {
			return p.withdrawOnce(ctx, cmd, result)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// execute runs the shared command stages. op applies the business
// operation, persists the aggregates and returns the raised events;
// result must be filled by op and is serialized into the idempotency
// store on success.
func (p *Pipeline) execute(ctx context.Context, name, key string, cmd interface{}, result interface{}, op func(ctx context.Context) ([]domain.DomainEvent, error)) error {
	start := time.Now()

	logger := p.logger
	if reqID := requestid.FromContext(ctx); reqID != "" {
		logger = logger.With(zap.String("request_id", reqID))
	}

	if err := p.validateCommand(cmd); err != nil {
		p.metrics.ObserveCommand(name, "rejected", time.Since(start))
		return err
	}

	reserved := false
	if key != "" {
		winner, existing, err := p.idem.Reserve(ctx, key, p.idemTTL)
		if err != nil {
			if errors.Is(err, idempotency.ErrInFlight) {
				p.metrics.ObserveCommand(name, "rejected", time.Since(start))
				return err
			}
			p.metrics.ObserveCommand(name, "error", time.Since(start))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "idempotency lookup failed")
		}
		if existing != nil {
			if err := json.Unmarshal(existing.Payload, result); err != nil {
				p.metrics.ObserveCommand(name, "error", time.Since(start))
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored result decode failed")
			}
			p.metrics.ObserveIdempotentHit(name)
			p.metrics.ObserveCommand(name, "cached", time.Since(start))
			logger.Info("command replayed from idempotency store", zap.String("command", name))
			return nil
		}
		reserved = winner
	}

	// Cancellation is honored only before the business mutation starts.
	// Once op begins it runs to completion.
	if err := ctx.Err(); err != nil {
		if reserved {
			p.releaseReservation(key)
		}
		p.metrics.ObserveCommand(name, "rejected", time.Since(start))
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "request canceled")
	}

	events, err := op(context.WithoutCancel(ctx))
	if err != nil {
		if reserved {
			p.releaseReservation(key)
		}
		if appErrors.IsExpected(err) {
			p.metrics.ObserveCommand(name, "rejected", time.Since(start))
			logger.Info("command rejected", zap.String("command", name), zap.String("reason", appErrors.FromError(err).Message))
		} else {
			p.metrics.ObserveCommand(name, "error", time.Since(start))
			logger.Error("command failed", zap.String("command", name), zap.Error(err))
		}
		return err
	}

	if reserved {
		payload, err := json.Marshal(result)
		if err == nil {
			err = p.idem.Save(context.WithoutCancel(ctx), key, payload, p.idemTTL)
		}
		if err != nil {
			// The mutation is committed. Surfacing the error beats
			// silently losing replay protection for this key.
			p.metrics.ObserveCommand(name, "error", time.Since(start))
			logger.Error("idempotency result store failed", zap.String("command", name), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "result storage failed; retry may conflict")
		}
	}

	p.dispatchEvents(ctx, events)
	p.metrics.ObserveCommand(name, "success", time.Since(start))
	return nil
}

func (p *Pipeline) enrollOnce(ctx context.Context, cmd EnrollStudentCommand, result *EnrollResult) ([]domain.DomainEvent, error) {
	unlockStudent := p.studentLocks.Lock(cmd.StudentID)
	defer unlockStudent()
	unlockOffering := p.offeringLocks.Lock(cmd.OfferingID)
	defer unlockOffering()

	student, err := p.students.Load(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	student.SetCreditCeiling(p.creditCeiling)

	course, err := p.courses.Load(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	offering, err := p.offerings.Load(ctx, cmd.OfferingID)
	if err != nil {
		return nil, err
	}
	if offering.CourseID != cmd.CourseID || offering.Term != cmd.Term {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering does not match course and term")
	}

	offeringVersion := offering.Version
	enrollmentID, err := student.EnrollInCourse(course, offering, cmd.Term, p.now())
	if err != nil {
		return nil, err
	}

	// The seat reservation commits first; any student-save failure hands
	// the seat back, so a failed enrollment never shrinks effective
	// capacity. Version conflicts additionally retry with fresh reads.
	if err := p.offerings.Save(ctx, offering, offeringVersion); err != nil {
		return nil, err
	}
	if err := p.students.Save(ctx, student, student.Version()); err != nil {
		p.compensateSeat(ctx, cmd.OfferingID)
		return nil, err
	}

	*result = EnrollResult{
		EnrollmentID: enrollmentID,
		StudentID:    cmd.StudentID,
		CourseID:     cmd.CourseID,
		Term:         cmd.Term,
		CreditHours:  course.CreditHours,
	}
	return student.PullEvents(), nil
}

func (p *Pipeline) assignGradeOnce(ctx context.Context, cmd AssignGradeCommand, result *AssignGradeResult) ([]domain.DomainEvent, error) {
	unlock := p.studentLocks.Lock(cmd.StudentID)
	defer unlock()

	student, err := p.students.Load(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if err := student.AssignGrade(cmd.EnrollmentID, domain.Grade(cmd.Grade), cmd.GraderID, p.now()); err != nil {
		return nil, err
	}
	if err := p.students.Save(ctx, student, student.Version()); err != nil {
		return nil, err
	}

	*result = AssignGradeResult{EnrollmentID: cmd.EnrollmentID, Grade: cmd.Grade}
	return student.PullEvents(), nil
}

func (p *Pipeline) withdrawOnce(ctx context.Context, cmd WithdrawCommand, result *WithdrawResult) ([]domain.DomainEvent, error) {
	unlockStudent := p.studentLocks.Lock(cmd.StudentID)
	defer unlockStudent()

	student, err := p.students.Load(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	var offeringID string
	for _, e := range student.Enrollments() {
		if e.ID == cmd.EnrollmentID {
			offeringID = e.OfferingID
			break
		}
	}
	if offeringID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	unlockOffering := p.offeringLocks.Lock(offeringID)
	defer unlockOffering()

	offering, err := p.offerings.Load(ctx, offeringID)
	if err != nil {
		return nil, err
	}

	offeringVersion := offering.Version
	if err := student.Withdraw(cmd.EnrollmentID, offering, p.now()); err != nil {
		return nil, err
	}

	if err := p.offerings.Save(ctx, offering, offeringVersion); err != nil {
		return nil, err
	}
	if err := p.students.Save(ctx, student, student.Version()); err != nil {
		p.compensateRelease(ctx, offeringID)
		return nil, err
	}

	*result = WithdrawResult{EnrollmentID: cmd.EnrollmentID, Status: string(domain.EnrollmentStatusWithdrawn)}
	return student.PullEvents(), nil
}

// withConflictRetry reloads and reapplies the operation after a
// repository version conflict. Blind retry is safe here: the operation
// is idempotent against a fresh read, and expected business failures
// pass through untouched.
func (p *Pipeline) withConflictRetry(ctx context.Context, op func(ctx context.Context) ([]domain.DomainEvent, error)) ([]domain.DomainEvent, error) {
	var lastErr error
	for attempt := 0; attempt <= p.conflictRetries; attempt++ {
		events, err := op(ctx)
		if err == nil || !errors.Is(err, appErrors.ErrVersionConflict) {
			return events, err
		}
		lastErr = err
		p.logger.Info("retrying after version conflict", zap.Int("attempt", attempt+1))
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "concurrent modification, retries exhausted")
}

func (p *Pipeline) dispatchEvents(ctx context.Context, events []domain.DomainEvent) {
	if p.events == nil || len(events) == 0 {
		return
	}
	outcomes := p.events.Dispatch(context.WithoutCancel(ctx), events)
	failures := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
		}
	}
	p.metrics.ObserveDispatch(len(events), failures)
}

func (p *Pipeline) releaseReservation(key string) {
	if err := p.idem.Release(context.Background(), key); err != nil {
		p.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
	}
}

// compensateSeat returns a seat reserved by a failed enrollment.
func (p *Pipeline) compensateSeat(ctx context.Context, offeringID string) {
	offering, err := p.offerings.Load(ctx, offeringID)
	if err == nil {
		offering.Release()
		err = p.offerings.Save(ctx, offering, offering.Version)
	}
	if err != nil {
		p.logger.Error("seat compensation failed", zap.String("offering_id", offeringID), zap.Error(err))
	}
}

// compensateRelease re-takes a seat freed by a failed withdrawal.
func (p *Pipeline) compensateRelease(ctx context.Context, offeringID string) {
	offering, err := p.offerings.Load(ctx, offeringID)
	if err == nil {
		offering.Enrolled++
		err = p.offerings.Save(ctx, offering, offering.Version)
	}
	if err != nil {
		p.logger.Error("seat compensation failed", zap.String("offering_id", offeringID), zap.Error(err))
	}
}

// validateCommand aggregates field-level failures into a single
// validation error before any state is touched.
func (p *Pipeline) validateCommand(cmd interface{}) error {
	err := p.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid command payload")
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return appErrors.Clone(appErrors.ErrValidation, "invalid command payload: "+strings.Join(parts, "; "))
}
