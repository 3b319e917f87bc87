package services

import (
	"strings"
	"testing"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/contactfilter"
	"github.com/changheecho2/banju/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_Valid(t *testing.T) {
	in := validInput()
	in.Instrument = "  성악  "
	in.Options = models.RequestOptions{SightReading: true, Recording: true}

	req, err := ValidateRequest(in)
	require.NoError(t, err)
	assert.Equal(t, "성악", req.Instrument)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.False(t, req.ContactUnlocked)
	assert.Equal(t, int64(50000), req.BudgetMin)
	assert.Equal(t, int64(100000), req.BudgetMax)
	assert.True(t, req.Options.SightReading)
	assert.False(t, req.Options.ProvideSheet)
	require.NotNil(t, req.Private)
	assert.Equal(t, "a@b.com", req.Private.Email)
	assert.Nil(t, req.PaymentSessionID)
}

func TestValidateRequest_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CreateRequestInput)
		message string
	}{
		{"blank instrument", func(in *CreateRequestInput) { in.Instrument = "   " }, "instrument 값이 필요합니다."},
		{"missing email", func(in *CreateRequestInput) { in.ContactEmail = "" }, "contactEmail 값이 필요합니다."},
		{"missing accompanist", func(in *CreateRequestInput) { in.AccompanistUID = "" }, "accompanistUid 값이 필요합니다."},
		{"inverted budget", func(in *CreateRequestInput) { in.BudgetMin, in.BudgetMax = int64p(90000), int64p(60000) }, "희망 비용 범위를 확인해 주세요."},
		{"missing budget", func(in *CreateRequestInput) { in.BudgetMax = nil }, "희망 비용 범위를 확인해 주세요."},
		{"long note", func(in *CreateRequestInput) { in.Note = strings.Repeat("가", MaxNoteLength+1) }, "전달사항은 120자 이내여야 합니다."},
		{"bad email", func(in *CreateRequestInput) { in.ContactEmail = "not-an-email" }, "유효한 이메일을 입력해 주세요."},
		{"one letter tld", func(in *CreateRequestInput) { in.ContactEmail = "a@b.c" }, "유효한 이메일을 입력해 주세요."},
		{"numeric tld", func(in *CreateRequestInput) { in.ContactEmail = "a@b.1" }, "유효한 이메일을 입력해 주세요."},
		{"trailing punctuation", func(in *CreateRequestInput) { in.ContactEmail = "a@b.c0m!" }, "유효한 이메일을 입력해 주세요."},
		{"markup in email", func(in *CreateRequestInput) { in.ContactEmail = "<script>@x.y" }, "유효한 이메일을 입력해 주세요."},
		{"kakao note", func(in *CreateRequestInput) { in.Note = "카톡 아이디로 연락주세요" }, contactfilter.Message},
		{"phone in location", func(in *CreateRequestInput) { in.Location = "010-1234-5678" }, contactfilter.Message},
		{"link in repertoire", func(in *CreateRequestInput) { in.Repertoire = "https://youtu.be/x" }, contactfilter.Message},
		{"unknown purpose", func(in *CreateRequestInput) { in.Purpose = "결혼식" }, "요청 목적을 선택해 주세요."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			req, err := ValidateRequest(in)
			assert.Nil(t, req)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
			assert.Equal(t, tc.message, apperr.MessageOf(err))
		})
	}
}

func TestValidateRequest_NoteAtLimit(t *testing.T) {
	in := validInput()
	in.Note = strings.Repeat("가", MaxNoteLength)

	_, err := ValidateRequest(in)
	assert.NoError(t, err)
}

func TestValidateRequest_FilterErrorUnwraps(t *testing.T) {
	in := validInput()
	in.Note = "텔레그램 주세요"

	_, err := ValidateRequest(in)
	assert.ErrorIs(t, err, contactfilter.ErrContactInfo)
}

func TestValidateRequest_EqualBudgetAllowed(t *testing.T) {
	in := validInput()
	in.BudgetMin, in.BudgetMax = int64p(70000), int64p(70000)

	_, err := ValidateRequest(in)
	assert.NoError(t, err)
}
