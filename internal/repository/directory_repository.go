package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// DirectoryRepo backs the chat assistant: account lookups, sign-up
// catalogues and registration requests.
type DirectoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// EmailTaken reports whether an account or a registration request in any
// status already uses email.  uq_registration_email spans every status.
func (r *DirectoryRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?) OR EXISTS(SELECT 1 FROM registration_requests WHERE email = ?)`
	e := normEmail(email)
	var taken bool
	if err := r.db.QueryRowContext(ctx, q, e, e).Scan(&taken); err != nil {
		return false, classify(err)
	}
	return taken, nil
}

// Specializations lists the catalogue in display order.
func (r *DirectoryRepo) Specializations(ctx context.Context) ([]model.Specialization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name_ar, name_en FROM specializations ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.Specialization
	for rows.Next() {
		var s model.Specialization
		if err := rows.Scan(&s.ID, &s.NameAr, &s.NameEn); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ActivePackages lists purchasable packages, cheapest first.
func (r *DirectoryRepo) ActivePackages(ctx context.Context) ([]model.Package, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name_ar, name_en, price, currency FROM packages WHERE is_active = 1 ORDER BY price, id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.Package
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.NameAr, &p.NameEn, &p.Price, &p.Currency); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateRegistration stores a pending sign-up.  ErrDuplicate means the
// email already has a request.
func (r *DirectoryRepo) CreateRegistration(ctx context.Context, req *model.RegistrationRequest) error {
	const q = `INSERT INTO registration_requests
		(email, first_name, last_name, password_hash, phone, country, role, company_name, specialization_id, package_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var phone, company any
	if req.Phone != "" {
		phone = req.Phone
	}
	if req.CompanyName != "" {
		company = req.CompanyName
	}
	res, err := r.db.ExecContext(ctx, q, normEmail(req.Email), req.FirstName, req.LastName, req.PasswordHash,
		phone, req.Country, req.Role, company, idArg(req.SpecializationID), idArg(req.PackageID))
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// ExhibitorByEmail returns the exhibitor profile of the account using
// email.  ErrNotFound covers both a missing account and a non-exhibitor one.
func (r *DirectoryRepo) ExhibitorByEmail(ctx context.Context, email string) (model.Exhibitor, error) {
	const q = `SELECT x.id, x.user_id, x.company_name, x.is_active
		FROM users u JOIN exhibitors x ON x.user_id = u.id
		WHERE u.email = ? AND u.role = 'EXHIBITOR'`
	var e model.Exhibitor
	if err := r.db.QueryRowContext(ctx, q, normEmail(email)).Scan(&e.ID, &e.UserID, &e.CompanyName, &e.IsActive); err != nil {
		return model.Exhibitor{}, classify(err)
	}
	return e, nil
}

// SaveDraft stores d with status draft and sets its id.
func (r *DirectoryRepo) SaveDraft(ctx context.Context, d *model.EmailDraft) error {
	const q = `INSERT INTO email_drafts (exhibitor_id, recipient, company_name, subject, body, lang, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, d.ExhibitorID, normEmail(d.Recipient), d.CompanyName, d.Subject, d.Body, d.Lang, model.DraftStatusDraft)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID, d.Status = uint64(id), model.DraftStatusDraft
	return nil
}

// AccountStatus reports the exhibitor account state for email.
func (r *DirectoryRepo) AccountStatus(ctx context.Context, email string) (model.AccountState, error) {
	e := normEmail(email)
	const q = `SELECT u.role, COALESCE(x.is_active, 0) FROM users u LEFT JOIN exhibitors x ON x.user_id = u.id WHERE u.email = ?`
	var (
		role   string
		active bool
	)
	err := r.db.QueryRowContext(ctx, q, e).Scan(&role, &active)
	switch {
	case err == nil:
		if role != model.RoleExhibitor {
			return model.AccountNotExhibitor, nil
		}
		if active {
			return model.AccountActive, nil
		}
		return model.AccountPending, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", classify(err)
	}

	var pending bool
	const pq = `SELECT EXISTS(SELECT 1 FROM registration_requests WHERE email = ? AND status = 'pending')`
	if err := r.db.QueryRowContext(ctx, pq, e).Scan(&pending); err != nil {
		return "", classify(err)
	}
	if pending {
		return model.AccountPending, nil
	}
	return model.AccountNotFound, nil
}
