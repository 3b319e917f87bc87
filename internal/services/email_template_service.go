package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/changheecho2/banju/internal/db"
	"github.com/changheecho2/banju/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Template IDs.
const (
	TemplateNewRequest      = "new_request"
	TemplateRequestAccepted = "request_accepted"
	DefaultLocale           = "ko-KR"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateNewRequest: {
		TemplateID: TemplateNewRequest,
		Locale:     DefaultLocale,
		Subject:    "[{{.app_name}}] 새 반주 요청이 도착했습니다",
		Body: "{{.display_name}}님, 새 반주 요청이 도착했습니다.\n\n" +
			"목적: {{.purpose}}\n악기/파트: {{.instrument}}\n곡: {{.repertoire}}\n" +
			"일정: {{.schedule}}\n장소: {{.location}}\n희망 비용: {{.budget_min}}원 ~ {{.budget_max}}원\n\n" +
			"대시보드에서 확인하세요: {{.link}}",
	},
	TemplateRequestAccepted: {
		TemplateID: TemplateRequestAccepted,
		Locale:     DefaultLocale,
		Subject:    "[{{.app_name}}] 반주 요청이 수락되었습니다",
		Body: "요청하신 {{.purpose}} 반주({{.repertoire}}, {{.schedule}})가 수락되었습니다.\n" +
			"반주자가 곧 입력하신 이메일로 연락드릴 예정입니다.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(database *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: database}
}

// GetTemplate retrieves an email template by ID and locale, falling back to
// the built-in default when none is stored.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := s.db.Collection(db.CollectionEmailTemplates).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return DefaultTemplate(templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}
	_, err := s.db.Collection(db.CollectionEmailTemplates).UpdateOne(ctx, filter, bson.M{"$set": template}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// DefaultTemplate returns a copy of the built-in template for templateID.
func DefaultTemplate(templateID, locale string) (*models.EmailTemplate, error) {
	t, ok := defaultEmailTemplates[templateID]
	if !ok {
		return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
	}
	return &t, nil
}
