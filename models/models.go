package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of access levels an Employee can hold.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleCEO   Role = "ceo"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCEO, RoleUser:
		return true
	}
	return false
}

// Organization statuses.
const (
	OrgStatusPending = "pending"
	OrgStatusActive  = "active"
)

type Organization struct {
	gorm.Model
	Name        string `gorm:"not null"`
	CEOEmail    string `gorm:"not null"`
	CEOID       *uint
	InviteToken string
	Status      string `gorm:"default:pending"`
}

type Department struct {
	gorm.Model
	Name   string `gorm:"not null"`
	OrgID  uint   `gorm:"not null;index"`
	HeadID *uint
}

// Invite statuses on an Employee record.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
)

type Employee struct {
	gorm.Model
	Name         string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string
	GoogleID     *string
	Role         Role `gorm:"default:user"`
	OrgID        *uint
	DepartmentID *uint
	InviteToken  string
	InviteStatus string `gorm:"default:pending"`
	AcceptedAt   *time.Time
	IsActive     bool `gorm:"default:true"`
	LastLogin    *time.Time
}

// InviteLog statuses.
const (
	InviteLogSent     = "sent"
	InviteLogClicked  = "clicked"
	InviteLogAccepted = "accepted"
	InviteLogExpired  = "expired"
)

// InviteLogTTL is how long an invitation link stays valid.
const InviteLogTTL = 7 * 24 * time.Hour

type InviteLog struct {
	gorm.Model
	Email        string `gorm:"not null;index:idx_invite_email_status"`
	OrgID        *uint
	DepartmentID *uint
	InvitedBy    uint   `gorm:"not null"`
	Role         Role   `gorm:"not null"`
	Token        string `gorm:"uniqueIndex;not null"`
	Status       string `gorm:"default:sent;index:idx_invite_email_status"`
	SentAt       time.Time
	ClickedAt    *time.Time
	AcceptedAt   *time.Time
	ExpiresAt    time.Time
}

// OTP purposes.
const (
	OTPLogin  = "login"
	OTPSignup = "signup"
	OTPReset  = "reset"
)

// OTPTTL is how long a one-time code stays valid.
const OTPTTL = 10 * time.Minute

// OTP is a single-use 6-digit numeric code scoped to an email and purpose.
// At most one live row exists per (email,type); issuing deletes prior rows.
type OTP struct {
	gorm.Model
	Email     string `gorm:"not null;index:idx_otp_email_type"`
	Code      string `gorm:"not null"`
	Type      string `gorm:"not null;index:idx_otp_email_type"`
	ExpiresAt time.Time
}

// Survey statuses.
const (
	SurveyDraft  = "draft"
	SurveyActive = "active"
	SurveyClosed = "closed"
)

// Option is one selectable answer carrying hidden marks for both dimensions.
type Option struct {
	Text            string `json:"text"`
	CreativityMarks int    `json:"creativityMarks"`
	MoralityMarks   int    `json:"moralityMarks"`
}

// Question has parallel option sets for the present and future aspects.
// ID is assigned at survey creation so answers can reference questions
// stably across template clones.
type Question struct {
	ID             string   `json:"id"`
	QuestionNumber string   `json:"questionNumber"`
	Text           string   `json:"text"`
	PresentOptions []Option `json:"presentOptions"`
	FutureOptions  []Option `json:"futureOptions"`
	Required       bool     `json:"required"`
}

// QuestionList is stored as a JSON document column, mirroring the
// document shape the survey editor produces.
type QuestionList []Question

type Survey struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	OrgID       *uint        // nil for admin-authored templates
	CreatedBy   uint         `gorm:"not null"`
	Questions   QuestionList `gorm:"type:text;serializer:json"`
	IsTemplate  bool         `gorm:"default:false;index"`
	DueDate     *time.Time
	Status      string `gorm:"default:draft"`
}

// Assignment statuses.
const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
)

type SurveyAssignment struct {
	gorm.Model
	SurveyID     uint `gorm:"not null;uniqueIndex:idx_assignment_survey_employee"`
	OrgID        uint `gorm:"not null;index"`
	DepartmentID *uint
	EmployeeID   uint   `gorm:"not null;uniqueIndex:idx_assignment_survey_employee"`
	Status       string `gorm:"default:pending"`
	DueDate      *time.Time
	AssignedAt   time.Time
	CompletedAt  *time.Time
}

// Answer holds one question's selections with the marks resolved at
// submission time. Option indexes are pointers so "unanswered" is
// distinguishable from "option 0".
type Answer struct {
	QuestionID             string `json:"questionId"`
	QuestionNumber         string `json:"questionNumber"`
	PresentOptionIndex     *int   `json:"presentOptionIndex"`
	PresentCreativityMarks int    `json:"presentCreativityMarks"`
	PresentMoralityMarks   int    `json:"presentMoralityMarks"`
	FutureOptionIndex      *int   `json:"futureOptionIndex"`
	FutureCreativityMarks  int    `json:"futureCreativityMarks"`
	FutureMoralityMarks    int    `json:"futureMoralityMarks"`
}

type AnswerList []Answer

// SurveyResponse is unique per (survey, employee); drafts and the final
// submission share the same row via upsert.
type SurveyResponse struct {
	gorm.Model
	SurveyID     uint `gorm:"not null;uniqueIndex:idx_response_survey_employee"`
	EmployeeID   uint `gorm:"not null;uniqueIndex:idx_response_survey_employee"`
	OrgID        uint `gorm:"not null;index"`
	DepartmentID *uint
	Answers      AnswerList `gorm:"type:text;serializer:json"`

	PresentCreativityTotal      int
	PresentMoralityTotal        int
	PresentCreativityPercentage float64
	PresentMoralityPercentage   float64
	PresentCreativityBand       string `gorm:"default:Early"`
	PresentMoralityBand         string `gorm:"default:Early"`

	FutureCreativityTotal      int
	FutureMoralityTotal        int
	FutureCreativityPercentage float64
	FutureMoralityPercentage   float64
	FutureCreativityBand       string `gorm:"default:Early"`
	FutureMoralityBand         string `gorm:"default:Early"`

	IsDraft     bool `gorm:"default:false"`
	SubmittedAt *time.Time
}

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in-progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

type TicketMessage struct {
	gorm.Model
	TicketID   uint   `gorm:"not null;index"`
	SenderID   uint   `gorm:"not null"`
	SenderRole Role   `gorm:"not null"`
	Message    string `gorm:"not null"`
}

type SupportTicket struct {
	gorm.Model
	TicketNumber  string `gorm:"uniqueIndex;not null"`
	Subject       string `gorm:"not null"`
	Category      string `gorm:"default:other"`
	Priority      string `gorm:"default:medium"`
	Status        string `gorm:"default:open"`
	CreatedByID   uint   `gorm:"not null"`
	CreatedByRole Role   `gorm:"not null"`
	OrgID         *uint
	AssignedToID  *uint
	ResolvedAt    *time.Time
	Messages      []TicketMessage `gorm:"foreignKey:TicketID"`
}
