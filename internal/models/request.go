package models

import "time"

// RequestStatus is the lifecycle state of a ServiceRequest.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// Purposes a request can be made for.
const (
	PurposeAudition    = "입시"
	PurposePerformance = "공연"
	PurposeCompetition = "콩쿨"
	PurposeLesson      = "레슨"
)

// Purposes lists every valid purpose in display order.
var Purposes = []string{PurposeAudition, PurposePerformance, PurposeCompetition, PurposeLesson}

// IsValidPurpose reports whether p is one of Purposes.
func IsValidPurpose(p string) bool {
	for _, v := range Purposes {
		if v == p {
			return true
		}
	}
	return false
}

// RequestOptions are independent extras the requester asks for.
type RequestOptions struct {
	SightReading     bool `bson:"sight_reading" json:"sightReading"`
	SameDayRehearsal bool `bson:"same_day_rehearsal" json:"sameDayRehearsal"`
	Recording        bool `bson:"recording" json:"recording"`
	ProvideSheet     bool `bson:"provide_sheet" json:"provideSheet"`
}

// PrivateContact holds the requester's real contact channel. It is stored
// nested in the request document and only read through the unlock-gated path.
type PrivateContact struct {
	Email string `bson:"contact_email" json:"email"`
}

// ServiceRequest is a requester's ask to a single accompanist.
type ServiceRequest struct {
	ID               string          `bson:"_id" json:"id"`
	AccompanistUID   string          `bson:"accompanist_uid" json:"accompanistUid"`
	Purpose          string          `bson:"purpose" json:"purpose"`
	Instrument       string          `bson:"instrument" json:"instrument"`
	Repertoire       string          `bson:"repertoire" json:"repertoire"`
	Schedule         string          `bson:"schedule" json:"schedule"`
	Location         string          `bson:"location" json:"location"`
	BudgetMin        int64           `bson:"budget_min" json:"budgetMin"`
	BudgetMax        int64           `bson:"budget_max" json:"budgetMax"`
	Options          RequestOptions  `bson:"options" json:"options"`
	Note             string          `bson:"note" json:"note,omitempty"`
	Status           RequestStatus   `bson:"status" json:"status"`
	ContactUnlocked  bool            `bson:"contact_unlocked" json:"contactUnlocked"`
	PaymentSessionID *string         `bson:"payment_session_id" json:"-"`
	PaidAt           *time.Time      `bson:"paid_at" json:"paidAt,omitempty"`
	RejectedAt       *time.Time      `bson:"rejected_at,omitempty" json:"rejectedAt,omitempty"`
	CreatedAt        time.Time       `bson:"created_at" json:"createdAt"`
	Private          *PrivateContact `bson:"private,omitempty" json:"-"` // Projected out of every general read
}
