package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/contactfilter"
	"github.com/changheecho2/banju/internal/metrics"
	"github.com/changheecho2/banju/internal/models"
)

// MaxNoteLength is the longest note a requester may leave, in characters.
const MaxNoteLength = 120

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// CreateRequestInput is the typed submission accepted by createRequest.
type CreateRequestInput struct {
	AccompanistUID string                `json:"accompanistUid"`
	Purpose        string                `json:"purpose"`
	Instrument     string                `json:"instrument"`
	Repertoire     string                `json:"repertoire"`
	Schedule       string                `json:"schedule"`
	Location       string                `json:"location"`
	BudgetMin      *int64                `json:"budgetMin"`
	BudgetMax      *int64                `json:"budgetMax"`
	Options        models.RequestOptions `json:"options"`
	Note           string                `json:"note"`
	ContactEmail   string                `json:"contactEmail"`
}

// ValidateRequest checks a submission and builds the pending request it
// describes. It does not check the target profile; see CreateRequest.
func ValidateRequest(in CreateRequestInput) (*models.ServiceRequest, error) {
	required := []struct {
		name  string
		value *string
	}{
		{"accompanistUid", &in.AccompanistUID},
		{"purpose", &in.Purpose},
		{"instrument", &in.Instrument},
		{"repertoire", &in.Repertoire},
		{"schedule", &in.Schedule},
		{"location", &in.Location},
		{"contactEmail", &in.ContactEmail},
	}
	for _, f := range required {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return nil, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("%s 값이 필요합니다.", f.name))
		}
	}
	in.Note = strings.TrimSpace(in.Note)

	if in.BudgetMin == nil || in.BudgetMax == nil || *in.BudgetMin > *in.BudgetMax {
		return nil, apperr.New(apperr.CodeInvalidArgument, "희망 비용 범위를 확인해 주세요.")
	}

	if utf8.RuneCountInString(in.Note) > MaxNoteLength {
		return nil, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("전달사항은 %d자 이내여야 합니다.", MaxNoteLength))
	}

	if !emailPattern.MatchString(in.ContactEmail) {
		return nil, apperr.New(apperr.CodeInvalidArgument, "유효한 이메일을 입력해 주세요.")
	}

	for _, text := range []string{in.Instrument, in.Repertoire, in.Schedule, in.Location, in.Note} {
		if class, found := contactfilter.Match(text); found {
			metrics.ContactFilterRejections.WithLabelValues(string(class)).Inc()
			return nil, apperr.Wrap(apperr.CodeInvalidArgument, contactfilter.Message, contactfilter.ErrContactInfo)
		}
	}

	if !models.IsValidPurpose(in.Purpose) {
		return nil, apperr.New(apperr.CodeInvalidArgument, "요청 목적을 선택해 주세요.")
	}

	return &models.ServiceRequest{
		AccompanistUID:  in.AccompanistUID,
		Purpose:         in.Purpose,
		Instrument:      in.Instrument,
		Repertoire:      in.Repertoire,
		Schedule:        in.Schedule,
		Location:        in.Location,
		BudgetMin:       *in.BudgetMin,
		BudgetMax:       *in.BudgetMax,
		Options:         in.Options,
		Note:            in.Note,
		Status:          models.RequestStatusPending,
		ContactUnlocked: false,
		Private:         &models.PrivateContact{Email: in.ContactEmail},
	}, nil
}
