package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/dispatch"
	"github.com/noah-isme/uni-registrar-api/internal/domain"
	"github.com/noah-isme/uni-registrar-api/pkg/jobs"
)

// NewNotificationQueue builds the background queue that delivers
// notifications raised by registrar events. Delivery is at-least-once;
// the worker is a pure function of the event payload and safe under
// duplicates.
func NewNotificationQueue(logger *zap.Logger) *jobs.Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return jobs.NewQueue("notifications", deliverNotification(logger), jobs.QueueConfig{
		Workers: 2,
		Logger:  logger,
	})
}

func deliverNotification(logger *zap.Logger) jobs.Handler {
	return func(_ context.Context, job jobs.Job) error {
		switch e := job.Payload.(type) {
		case domain.StudentEnrolled:
			logger.Info("notify: student enrolled",
				zap.String("student_id", e.StudentID),
				zap.String("course_id", e.CourseID),
				zap.String("term", e.Term),
			)
		case domain.GradeAssigned:
			logger.Info("notify: grade assigned",
				zap.String("student_id", e.StudentID),
				zap.String("enrollment_id", e.EnrollmentID),
				zap.String("grade", string(e.Grade)),
			)
		case domain.EnrollmentWithdrawn:
			logger.Info("notify: enrollment withdrawn",
				zap.String("student_id", e.StudentID),
				zap.String("enrollment_id", e.EnrollmentID),
			)
		default:
			logger.Debug("notify: unhandled event", zap.String("type", job.Type))
		}
		return nil
	}
}

// NotificationHandler bridges dispatched events onto the notification
// queue so slow delivery never blocks the command path.
type NotificationHandler struct {
	queue *jobs.Queue
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(queue *jobs.Queue) *NotificationHandler {
	return &NotificationHandler{queue: queue}
}

// Name identifies the handler in dispatch outcomes.
func (h *NotificationHandler) Name() string { return "notifications" }

// Handle enqueues one notification job per event. An enqueue failure is
// returned so the dispatcher's retry policy applies.
func (h *NotificationHandler) Handle(_ context.Context, event domain.DomainEvent) error {
	return h.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.EventName(),
		Payload: event,
	})
}

// RegisterReactions subscribes the standard reaction handlers plus an
// optional external bus bridge.
func RegisterReactions(d *dispatch.Dispatcher, queue *jobs.Queue, transport dispatch.Transport) {
	notifications := NewNotificationHandler(queue)
	for _, name := range []string{domain.EventStudentEnrolled, domain.EventGradeAssigned, domain.EventEnrollmentWithdrawn} {
		d.Subscribe(name, notifications)
		if transport != nil {
			d.Subscribe(name, dispatch.NewTransportHandler("event-bus", transport))
		}
	}
}
