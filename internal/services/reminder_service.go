package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/bemcuidar/internal/logging"
	"github.com/terraincognita07/bemcuidar/internal/models"
)

const reminderSubject = "Bem Cuidar: exames preventivos pendentes"

type ReminderRecipientRepository interface {
	ListReminderRecipients() ([]models.User, error)
	MarkReminderSent(userID uint, sentAt time.Time) error
}

type ReminderAlertSource interface {
	Alerts(ctx context.Context, userID uint, now time.Time) ([]CalculatedExam, error)
}

type ReminderMailer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

type ReminderRunObserver interface {
	ObserveReminderRun(result ReminderRunResult)
}

type ReminderRunResult struct {
	Checked int
	Sent    int
	Skipped int
	Failed  int
}

// ReminderService e-mails each user a digest of their overdue and due-soon
// exams, at most once per local day.
type ReminderService struct {
	users    ReminderRecipientRepository
	alerts   ReminderAlertSource
	mailer   ReminderMailer
	location *time.Location
	logger   logrus.FieldLogger
	observer ReminderRunObserver

	mu             sync.Mutex
	sentDailyUsers map[uint]time.Time
}

func NewReminderService(users ReminderRecipientRepository, alerts ReminderAlertSource, mailer ReminderMailer, location *time.Location, logger logrus.FieldLogger) *ReminderService {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &ReminderService{
		users:          users,
		alerts:         alerts,
		mailer:         mailer,
		location:       location,
		logger:         logger,
		sentDailyUsers: make(map[uint]time.Time),
	}
}

func (service *ReminderService) SetObserver(observer ReminderRunObserver) {
	service.observer = observer
}

// Start schedules RunOnce with a standard five-field cron expression. The scheduler
// stops when ctx is cancelled.
func (service *ReminderService) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithLocation(service.location))
	if _, err := scheduler.AddFunc(schedule, func() {
		result, err := service.RunOnce(ctx, time.Now().In(service.location))
		if err != nil {
			service.logger.WithError(err).Error("reminder run failed")
			return
		}
		if service.observer != nil {
			service.observer.ObserveReminderRun(result)
		}
		service.logger.WithFields(logrus.Fields{
			"checked": result.Checked,
			"sent":    result.Sent,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("reminder run finished")
	}); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return scheduler, nil
}

func (service *ReminderService) RunOnce(ctx context.Context, now time.Time) (ReminderRunResult, error) {
	recipients, err := service.users.ListReminderRecipients()
	if err != nil {
		return ReminderRunResult{}, fmt.Errorf("fetch reminder recipients: %w", err)
	}

	today := DateAtLocation(now, service.location)
	result := ReminderRunResult{}
	for _, user := range recipients {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++
		entry := service.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": maskEmail(user.Email)})

		if user.LastReminderAt != nil && sameDay(user.LastReminderAt.In(service.location), today) {
			result.Skipped++
			continue
		}

		alerts, err := service.alerts.Alerts(ctx, user.ID, now)
		if err != nil {
			entry.WithError(err).Warn("reminder alerts failed")
			result.Failed++
			continue
		}
		if len(alerts) == 0 || !service.shouldSend(user.ID, today) {
			result.Skipped++
			continue
		}

		if err := service.mailer.Send(ctx, user.Email, reminderSubject, BuildReminderBody(user, alerts)); err != nil {
			service.forget(user.ID)
			entry.WithError(err).Warn("reminder e-mail failed")
			result.Failed++
			continue
		}
		if err := service.users.MarkReminderSent(user.ID, now); err != nil {
			entry.WithError(err).Warn("mark reminder sent failed")
		}
		result.Sent++
	}
	return result, nil
}

func (service *ReminderService) shouldSend(userID uint, today time.Time) bool {
	service.mu.Lock()
	defer service.mu.Unlock()

	if sentOn, ok := service.sentDailyUsers[userID]; ok && sameDay(sentOn, today) {
		return false
	}

	service.sentDailyUsers[userID] = today
	if len(service.sentDailyUsers) > 5000 {
		service.sentDailyUsers = map[uint]time.Time{userID: today}
	}
	return true
}

func (service *ReminderService) forget(userID uint) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.sentDailyUsers, userID)
}

// BuildReminderBody renders the digest in pt-BR, one line per exam.
func BuildReminderBody(user models.User, alerts []CalculatedExam) string {
	var body strings.Builder
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = "Olá"
	} else {
		name = "Olá, " + strings.Fields(name)[0]
	}
	fmt.Fprintf(&body, "%s!\n\n", name)
	body.WriteString("Estes exames preventivos precisam da sua atenção:\n\n")
	for _, exam := range alerts {
		label := "Próximo do vencimento"
		if exam.Status == ExamStatusOverdue {
			label = "Atrasado"
			if exam.Priority == ExamPriorityUrgent {
				label = "Urgente"
			}
		}
		fmt.Fprintf(&body, "- %s (%s): %s\n", exam.Name, label, exam.NextDue)
	}
	body.WriteString("\nAgende seus exames e registre as datas no Bem Cuidar.\n")
	body.WriteString("Para não receber mais estes lembretes, desative-os no seu perfil.\n")
	return body.String()
}
