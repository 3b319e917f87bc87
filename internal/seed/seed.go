// Package seed loads development fixtures from YAML into the store.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/changheecho2/banju/internal/models"
)

// File is the layout of a seed document.
type File struct {
	Accompanists   []Accompanist   `yaml:"accompanists"`
	EmailTemplates []EmailTemplate `yaml:"email_templates"`
}

type Accompanist struct {
	UID            string   `yaml:"uid"`
	DisplayName    string   `yaml:"display_name"`
	Region         string   `yaml:"region"`
	Specialties    []string `yaml:"specialties"`
	Purposes       []string `yaml:"purposes"`
	PriceMin       int64    `yaml:"price_min"`
	PriceMax       int64    `yaml:"price_max"`
	Bio            string   `yaml:"bio"`
	Education      string   `yaml:"education"`
	Experience     string   `yaml:"experience"`
	PortfolioLinks []string `yaml:"portfolio_links"`
	AvailableSlots string   `yaml:"available_slots"`
	IsPublic       bool     `yaml:"is_public"`
	NotifyEmail    string   `yaml:"notify_email"`
}

type EmailTemplate struct {
	TemplateID string `yaml:"template_id"`
	Locale     string `yaml:"locale"`
	Subject    string `yaml:"subject"`
	Body       string `yaml:"body"`
}

// ProfileUpserter is satisfied by store.IAccompanistStore.
type ProfileUpserter interface {
	Upsert(ctx context.Context, profile *models.AccompanistProfile) error
}

// TemplateSaver is satisfied by *services.EmailTemplateService.
type TemplateSaver interface {
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a seed document.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Accompanists))
	for i, a := range f.Accompanists {
		if strings.TrimSpace(a.UID) == "" {
			return fmt.Errorf("accompanist #%d: uid is required", i+1)
		}
		if seen[a.UID] {
			return fmt.Errorf("accompanist %s: duplicate uid", a.UID)
		}
		seen[a.UID] = true
		if a.DisplayName == "" || a.Region == "" {
			return fmt.Errorf("accompanist %s: display_name and region are required", a.UID)
		}
		if a.PriceMin < 0 || a.PriceMin > a.PriceMax {
			return fmt.Errorf("accompanist %s: invalid price range %d-%d", a.UID, a.PriceMin, a.PriceMax)
		}
		for _, p := range a.Purposes {
			if !models.IsValidPurpose(p) {
				return fmt.Errorf("accompanist %s: unknown purpose %q", a.UID, p)
			}
		}
	}
	for i, t := range f.EmailTemplates {
		if t.TemplateID == "" || t.Locale == "" {
			return fmt.Errorf("email template #%d: template_id and locale are required", i+1)
		}
	}
	return nil
}

// Profile converts a seed entry into a stored profile.
func (a Accompanist) Profile(now time.Time) *models.AccompanistProfile {
	p := models.NewEmptyProfile(a.UID, a.NotifyEmail, now)
	p.DisplayName = a.DisplayName
	p.Region = a.Region
	p.Bio = a.Bio
	p.Education = a.Education
	p.Experience = a.Experience
	p.AvailableSlots = a.AvailableSlots
	p.PriceMin = a.PriceMin
	p.PriceMax = a.PriceMax
	p.IsPublic = a.IsPublic
	if a.Specialties != nil {
		p.Specialties = a.Specialties
	}
	if a.Purposes != nil {
		p.Purposes = a.Purposes
	}
	if a.PortfolioLinks != nil {
		p.PortfolioLinks = a.PortfolioLinks
	}
	return p
}

// Apply upserts every entry. Re-running it is harmless.
func Apply(ctx context.Context, f *File, profiles ProfileUpserter, templates TemplateSaver, now time.Time) error {
	for _, a := range f.Accompanists {
		if err := profiles.Upsert(ctx, a.Profile(now)); err != nil {
			return fmt.Errorf("seed accompanist %s: %w", a.UID, err)
		}
	}
	for _, t := range f.EmailTemplates {
		tmpl := &models.EmailTemplate{TemplateID: t.TemplateID, Locale: t.Locale, Subject: t.Subject, Body: t.Body}
		if err := templates.SaveTemplate(ctx, tmpl); err != nil {
			return fmt.Errorf("seed email template %s/%s: %w", t.TemplateID, t.Locale, err)
		}
	}
	log.Printf("Seeded %d accompanists and %d email templates", len(f.Accompanists), len(f.EmailTemplates))
	return nil
}
