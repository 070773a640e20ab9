// Package dialogue runs the scripted chat flows of the assistant: the
// registration request wizard, the account status check and the company
// email drafter.  Each chat
// session is an explicit state (flow, step, typed payload) persisted in a
// Store with an expiry.
package dialogue

import "time"

// Flow is the conversation a session is in.
type Flow string

const (
	FlowNone         Flow = ""
	FlowRegistration Flow = "registration"
	FlowStatus       Flow = "account_status"
	FlowEmailDraft   Flow = "email_draft"
)

// Step is the question the session is waiting on an answer for.
type Step string

const (
	StepNone           Step = ""
	StepEmail          Step = "email"
	StepFirstName      Step = "first_name"
	StepLastName       Step = "last_name"
	StepPassword       Step = "password"
	StepPhone          Step = "phone"
	StepCountry        Step = "country"
	StepRole           Step = "role"
	StepCompany        Step = "company_name"
	StepSpecialization Step = "specialization"
	StepPackage        Step = "package"
	StepConfirm        Step = "confirm"
	StepStatusEmail    Step = "status_email"
	StepDraftEmail     Step = "draft_email"
	StepSubject        Step = "subject"
	StepDraftConfirm   Step = "draft_confirm"
)

// Lang is the reply language, fixed when a flow starts.
type Lang string

const (
	LangAR Lang = "ar"
	LangEN Lang = "en"
)

// Registration is the payload collected by the registration flow.  The
// password is hashed as soon as it is entered and never stored in clear.
type Registration struct {
	Email              string  `json:"email,omitempty"`
	FirstName          string  `json:"first_name,omitempty"`
	LastName           string  `json:"last_name,omitempty"`
	PasswordHash       string  `json:"password_hash,omitempty"`
	Phone              string  `json:"phone,omitempty"`
	Country            string  `json:"country,omitempty"`
	Role               string  `json:"role,omitempty"`
	CompanyName        string  `json:"company_name,omitempty"`
	SpecializationID   *uint64 `json:"specialization_id,omitempty"`
	SpecializationName string  `json:"specialization_name,omitempty"`
	PackageID          *uint64 `json:"package_id,omitempty"`
	PackageName        string  `json:"package_name,omitempty"`
}

// Draft is the payload of the email drafting flow.
type Draft struct {
	ExhibitorID uint64 `json:"exhibitor_id,omitempty"`
	Email       string `json:"email,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Session is the persisted state of one chat.
type Session struct {
	ID           string        `json:"id"`
	Flow         Flow          `json:"flow"`
	Step         Step          `json:"step"`
	Lang         Lang          `json:"lang"`
	Registration *Registration `json:"registration,omitempty"`
	Draft        *Draft        `json:"draft,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Idle reports whether the session is outside any flow.
func (s Session) Idle() bool { return s.Flow == FlowNone }
