package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/email"
	"github.com/changheecho2/banju/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
)

// TaskEnqueuer is the subset of *asynq.Client used to enqueue work.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RedisOpt builds asynq connection options from an existing Redis client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   services.IEmailTemplateService
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, templates services.IEmailTemplateService) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
	}
}

// NewServer returns an asynq server; call Run with NewServeMux to start it.
func NewServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(RedisOpt(rdb), asynq.Config{
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("ERROR: task %s failed: %v", task.Type(), err)
		}),
	})
}

// NewServeMux registers the processor's handlers.
func NewServeMux(p *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, p.HandleEmailDeliveryTask)
	return mux
}

// --- Task Handlers ---

// EmailTaskPayload is the payload of TypeEmailDelivery.
type EmailTaskPayload struct {
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Locale     string         `json:"locale,omitempty"`
	Data       map[string]any `json:"data"`
}

// HandleEmailDeliveryTask renders a stored template and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = services.DefaultLocale
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("ERROR: getting email template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subject, err := render(tmpl.Subject, payload.Data)
	if err != nil {
		return fmt.Errorf("render subject of %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}
	body, err := render(tmpl.Body, payload.Data)
	if err != nil {
		return fmt.Errorf("render body of %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("WARN: SmtpFromAddress not configured, using fallback %s", fromAddress)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject)))
	sb.WriteString(fmt.Sprintf("%s: %s\r\n", email.TemplateHeader, payload.TemplateID))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, []byte(sb.String())); err != nil {
		log.Printf("ERROR: email delivery failed, will retry: %v", err)
		return err
	}

	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

func render(text string, data map[string]any) (string, error) {
	t, err := template.New("email").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
