package services

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/pkg/email"
)

// Notifier dispatches lending emails on a fixed pool of workers. Sends are
// fire and forget: a failed delivery is logged and never fails the request
// lifecycle operation that triggered it.
type Notifier struct {
	emailService email.EmailService
	tasks        chan func()
	wg           sync.WaitGroup
	workers      int
	logger       zerolog.Logger
}

// NewNotifier creates a Notifier with the given number of workers
func NewNotifier(emailService email.EmailService, workers int, logger zerolog.Logger) *Notifier {
	if workers <= 0 {
		workers = 4
	}
	return &Notifier{
		emailService: emailService,
		tasks:        make(chan func(), workers*10),
		workers:      workers,
		logger:       logger,
	}
}

// Start launches the worker goroutines
func (n *Notifier) Start() {
	n.logger.Info().Int("workers", n.workers).Msg("Starting notification workers")
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
}

// Stop closes the queue and waits for in-flight sends to finish
func (n *Notifier) Stop() {
	close(n.tasks)
	n.wg.Wait()
	n.logger.Info().Msg("Notification workers stopped")
}

func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for task := range n.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.logger.Error().
						Int("workerID", id).
						Interface("panic", r).
						Msg("Notification worker recovered from panic")
				}
			}()
			task()
		}()
	}
}

// submit enqueues a task without blocking the caller. When the queue is full
// the notification is dropped, not retried.
func (n *Notifier) submit(task func()) {
	select {
	case n.tasks <- task:
	default:
		n.logger.Warn().Msg("Notification queue full, dropping notification")
	}
}

// NotifyRequestReceived emails every mentor about a newly submitted request.
// Each recipient is sent independently so one bad address does not block the
// rest.
func (n *Notifier) NotifyRequestReceived(mentors []*models.User, student *models.User, component *models.Component, request *models.Request) {
	fields := email.TemplateFields{
		StudentName:   student.Name,
		ComponentName: component.Name,
		Quantity:      request.Quantity,
		Reason:        request.Reason,
	}

	for _, mentor := range mentors {
		toEmail := mentor.Email
		n.submit(func() {
			if err := n.emailService.SendRequestReceived(toEmail, fields); err != nil {
				n.logger.Error().Err(err).
					Str("toEmail", toEmail).
					Int64("requestID", request.ID).
					Msg("Failed to send request received notification")
			}
		})
	}
}

// NotifyRequestApproved emails the student that their request was approved
func (n *Notifier) NotifyRequestApproved(student *models.User, component *models.Component, request *models.Request, mentorName string) {
	n.notifyStudent(student, component, request, mentorName, n.emailService.SendRequestApproved, "approved")
}

// NotifyRequestRejected emails the student that their request was rejected
func (n *Notifier) NotifyRequestRejected(student *models.User, component *models.Component, request *models.Request, mentorName string) {
	n.notifyStudent(student, component, request, mentorName, n.emailService.SendRequestRejected, "rejected")
}

// NotifyRequestReturned confirms the return to the student
func (n *Notifier) NotifyRequestReturned(student *models.User, component *models.Component, request *models.Request) {
	n.notifyStudent(student, component, request, "", n.emailService.SendRequestReturned, "returned")
}

func (n *Notifier) notifyStudent(
	student *models.User,
	component *models.Component,
	request *models.Request,
	mentorName string,
	send func(string, email.TemplateFields) error,
	kind string,
) {
	fields := email.TemplateFields{
		StudentName:   student.Name,
		ComponentName: component.Name,
		Quantity:      request.Quantity,
		Reason:        request.Reason,
		MentorName:    mentorName,
	}
	toEmail := student.Email

	n.submit(func() {
		if err := send(toEmail, fields); err != nil {
			n.logger.Error().Err(err).
				Str("toEmail", toEmail).
				Str("kind", kind).
				Int64("requestID", request.ID).
				Msg("Failed to send request status notification")
		}
	})
}
