package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/email"
	"github.com/playmaker-pro/backend-sub001/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery     = "email:deliver"
	TypeInquiryEscalation = "inquiry:escalate"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// EmailTaskPayload carries a fully rendered message to the delivery worker.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MailDispatcher queues rendered emails through asynq so a state change never
// waits on SMTP and delivery retries independently.
type MailDispatcher struct {
	client *asynq.Client
}

func NewMailDispatcher(client *asynq.Client) *MailDispatcher {
	return &MailDispatcher{client: client}
}

var _ services.IMailDispatcher = (*MailDispatcher)(nil)

func (d *MailDispatcher) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(EmailTaskPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	_, err = d.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload), asynq.Queue("default"))
	if err != nil {
		return fmt.Errorf("failed to enqueue email to %s: %w", to, err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg               *config.Config
	emailSender       email.Sender
	escalationService services.IEscalationService
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, escalationService services.IEscalationService) *TaskProcessor {
	return &TaskProcessor{
		cfg:               cfg,
		emailSender:       emailSender,
		escalationService: escalationService,
	}
}

// SetupServer configures an Asynq server and the handler mux for the
// background worker. The caller runs the server.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeInquiryEscalation, processor.HandleInquiryEscalationTask)
	return srv, mux
}

// SetupScheduler registers the periodic escalation scan on the configured
// cron spec.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{Location: time.UTC},
	)
	_, err := scheduler.Register(cfg.EscalationSchedule, asynq.NewTask(TypeInquiryEscalation, nil), asynq.Queue("low"))
	if err != nil {
		return nil, fmt.Errorf("failed to register escalation schedule %q: %w", cfg.EscalationSchedule, err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, payload.To)
	}

	// Basic plain-text message with essential headers.
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(payload.Body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed for %s: %v", payload.To, err)
		return err
	}
	return nil
}

// HandleInquiryEscalationTask runs the daily escalation scan: reminders for
// recipients sitting on unread inquiries, refunds for senders whose inquiries
// went stale. Both sweeps are idempotent, so overlapping runs are harmless.
func (p *TaskProcessor) HandleInquiryEscalationTask(ctx context.Context, t *asynq.Task) error {
	reminded, err := p.escalationService.RemindOutdated(ctx)
	if err != nil {
		return fmt.Errorf("reminder sweep failed: %w", err)
	}
	rewarded, err := p.escalationService.RewardOutdated(ctx)
	if err != nil {
		return fmt.Errorf("reward sweep failed: %w", err)
	}
	log.Printf("Escalation scan finished: %d reminders sent, %d senders refunded.", reminded, rewarded)
	return nil
}
