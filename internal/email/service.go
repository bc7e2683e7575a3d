package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Directory resolves a user id to a deliverable address, satisfied by the
// user repository.
type Directory interface {
	GetNameAndEmail(ctx context.Context, userID int) (name, email string, err error)
}

// Service queues receipt emails on redis and drains them through SMTP in a
// background worker. Queueing is best effort everywhere it is called from:
// a receipt never blocks or fails a money operation.
type Service struct {
	redis     *redis.Client
	directory Directory
	from      string
	fromName  string
	smtpHost  string
	smtpPort  string
	smtpUser  string
	smtpPass  string
}

func New(rdb *redis.Client, directory Directory, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string) *Service {
	return &Service{
		redis:     rdb,
		directory: directory,
		from:      fromEmail,
		fromName:  fromName,
		smtpHost:  smtpHost,
		smtpPort:  smtpPort,
		smtpUser:  smtpUser,
		smtpPass:  smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	job := Job{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "error", err)
		return err
	}

	logger.Info("email queued", "subject", subject, "to", to)
	return nil
}

// SendWithdrawalReceipt queues the payout confirmation. Failures are logged
// and swallowed so the withdrawal outcome is never tied to SMTP.
func (s *Service) SendWithdrawalReceipt(ctx context.Context, userID int, reference string, netKobo int64) {
	name, address, err := s.directory.GetNameAndEmail(ctx, userID)
	if err != nil {
		logger.Error("receipt lookup failed", "user_id", userID, "error", err)
		return
	}

	subject := "Your withdrawal has been paid out"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour withdrawal %s has been paid out. NGN %s is on its way to your bank account.\n\nThe Tingle team",
		name, reference, formatNaira(netKobo),
	)

	if err := s.Send(ctx, address, name, subject, body); err != nil {
		logger.Error("failed to queue withdrawal receipt", "user_id", userID, "reference", reference, "error", err)
	}
}

// SendSubscriptionReceipt queues the renewal confirmation for a fan.
func (s *Service) SendSubscriptionReceipt(ctx context.Context, userID int, planName string, amountKobo int64, expiresAt time.Time) {
	name, address, err := s.directory.GetNameAndEmail(ctx, userID)
	if err != nil {
		logger.Error("receipt lookup failed", "user_id", userID, "error", err)
		return
	}

	subject := "Subscription confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %q subscription is active until %s. You were charged NGN %s.\n\nThe Tingle team",
		name, planName, expiresAt.Format("2 January 2006"), formatNaira(amountKobo),
	)

	if err := s.Send(ctx, address, name, subject, body); err != nil {
		logger.Error("failed to queue subscription receipt", "user_id", userID, "error", err)
	}
}

// Start drains the queue until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job payload", "error", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Error("failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(job, err)
			metrics.RecordEmail("receipt", "failed")
		}
		return
	}

	metrics.RecordEmail("receipt", "sent")
	logger.Info("email sent", "to", job.To, "subject", job.Subject)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, sendErr error) {
	failed := map[string]any{
		"job":   job,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Error("email moved to failed queue", "to", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

// formatNaira renders kobo as a naira string with two decimal places.
func formatNaira(kobo int64) string {
	return decimal.NewFromInt(kobo).Div(decimal.NewFromInt(100)).StringFixed(2)
}
