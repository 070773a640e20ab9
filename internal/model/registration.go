package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account roles as carried in the JWT role claim.
const (
	RoleUser      = "USER"
	RoleExhibitor = "EXHIBITOR"
	RoleAdmin     = "ADMIN"
)

// Specialization is a catalogue entry an exhibitor picks during sign-up.
type Specialization struct {
	ID     uint64 // specializations.id
	NameAr string // specializations.name_ar
	NameEn string // specializations.name_en
}

// Name returns the English name for "en" and the Arabic one otherwise.
func (s Specialization) Name(lang string) string { return pick(lang, s.NameAr, s.NameEn) }

// Package is a paid exhibition package.
type Package struct {
	ID       uint64          // packages.id
	NameAr   string          // packages.name_ar
	NameEn   string          // packages.name_en
	Price    decimal.Decimal // packages.price
	Currency string          // packages.currency
}

func (p Package) Name(lang string) string { return pick(lang, p.NameAr, p.NameEn) }

func pick(lang, ar, en string) string {
	if lang == "en" && en != "" {
		return en
	}
	return ar
}

// RegistrationRequest is a sign-up collected by the chat assistant, awaiting
// admin approval.
type RegistrationRequest struct {
	ID               uint64    // registration_requests.id
	Email            string    // registration_requests.email
	FirstName        string    // registration_requests.first_name
	LastName         string    // registration_requests.last_name
	PasswordHash     string    // registration_requests.password_hash
	Phone            string    // registration_requests.phone
	Country          string    // registration_requests.country
	Role             string    // registration_requests.role
	CompanyName      string    // registration_requests.company_name
	SpecializationID *uint64   // registration_requests.specialization_id
	PackageID        *uint64   // registration_requests.package_id
	CreatedAt        time.Time // registration_requests.created_at
}

// AccountState is what the account-status check reports.
type AccountState string

const (
	AccountNotFound     AccountState = "not_found"
	AccountNotExhibitor AccountState = "not_exhibitor"
	AccountActive       AccountState = "active"
	AccountPending      AccountState = "pending"
)

// DraftStatusDraft is the only status the assistant writes; sending happens
// outside this service.
const DraftStatusDraft = "draft"

// EmailDraft is a company letter drafted through the chat assistant.
type EmailDraft struct {
	ID          uint64    // email_drafts.id
	ExhibitorID uint64    // email_drafts.exhibitor_id
	Recipient   string    // email_drafts.recipient
	CompanyName string    // email_drafts.company_name
	Subject     string    // email_drafts.subject
	Body        string    // email_drafts.body
	Lang        string    // email_drafts.lang
	Status      string    // email_drafts.status
	CreatedAt   time.Time // email_drafts.created_at
}
