package dialogue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/expo-appointments/internal/metrics"
	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

const (
	minNameLen     = 2
	minPasswordLen = 6
	maxMessageLen  = 2000
)

// ErrEmptyMessage is returned for blank or oversized input.
var ErrEmptyMessage = errors.New("dialogue: empty message")

// Directory is what the flows read and write outside the session.
type Directory interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
	Specializations(ctx context.Context) ([]model.Specialization, error)
	ActivePackages(ctx context.Context) ([]model.Package, error)
	CreateRegistration(ctx context.Context, req *model.RegistrationRequest) error
	AccountStatus(ctx context.Context, email string) (model.AccountState, error)
	ExhibitorByEmail(ctx context.Context, email string) (model.Exhibitor, error)
	SaveDraft(ctx context.Context, d *model.EmailDraft) error
}

// Hasher turns a clear password into its stored hash.
type Hasher func(plain string) (string, error)

// BcryptHasher hashes with bcrypt at cost.
func BcryptHasher(cost int) Hasher {
	return func(plain string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID string `json:"session_id"`
	Text      string `json:"response"`
	Flow      Flow   `json:"flow,omitempty"`
	Step      Step   `json:"step,omitempty"`
	Done      bool   `json:"done,omitempty"`
	DraftID   uint64 `json:"draft_id,omitempty"`
}

// Machine advances sessions one message at a time.
type Machine struct {
	store    Store
	dir      Directory
	hash     Hasher
	drafter  Drafter
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewMachine(store Store, dir Directory, hash Hasher, log *zap.Logger) *Machine {
	if store == nil || dir == nil || hash == nil || log == nil {
		panic("nil dependency passed to NewMachine")
	}
	return &Machine{
		store:    store,
		dir:      dir,
		hash:     hash,
		drafter:  TemplateDrafter{},
		validate: validator.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithDrafter replaces the template drafter.
func (m *Machine) WithDrafter(d Drafter) *Machine {
	m.drafter = d
	return m
}

// turn is the result of handling one step.
type turn struct {
	text    string
	result  string // advanced, retry, completed, cancelled
	draftID uint64
}

// Handle processes message for sessionID.  An empty sessionID starts a new
// session; the reply carries the id to send back next time.
func (m *Machine) Handle(ctx context.Context, sessionID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > maxMessageLen {
		return Reply{}, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrNoSession):
		s = Session{ID: sessionID}
	case err != nil:
		return Reply{}, err
	}

	if s.Idle() {
		return m.start(ctx, s, message)
	}

	lower := strings.ToLower(message)
	if slices.Contains(abortWords, lower) {
		return m.finish(ctx, s, turn{text: text(s.Lang, msgCancelled), result: "cancelled"})
	}

	step := s.Step
	var t turn
	switch s.Flow {
	case FlowStatus:
		t, err = m.statusEmail(ctx, &s, message)
	case FlowRegistration:
		t, err = m.register(ctx, &s, message)
	case FlowEmailDraft:
		t, err = m.draftEmail(ctx, &s, message)
	default:
		// unknown flow from an older deployment; start over
		s = Session{ID: sessionID}
		return m.start(ctx, s, message)
	}
	if err != nil {
		metrics.ObserveDialogueStep(string(s.Flow), string(step), "error")
		m.log.Error("chat step failed", zap.String("session_id", s.ID), zap.String("step", string(step)), zap.Error(err))
		return Reply{}, err
	}
	metrics.ObserveDialogueStep(string(s.Flow), string(step), t.result)
	if t.result == "completed" || t.result == "cancelled" {
		return m.finish(ctx, s, t)
	}
	return m.save(ctx, s, t)
}

func (m *Machine) start(ctx context.Context, s Session, message string) (Reply, error) {
	lang := DetectLang(message)
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, registerWords):
		s.Flow, s.Step, s.Lang, s.Registration = FlowRegistration, StepEmail, lang, &Registration{}
		metrics.ObserveDialogueStep(string(FlowRegistration), "start", "advanced")
		return m.save(ctx, s, turn{text: text(lang, msgStartRegistration)})
	case containsAny(lower, statusWords):
		s.Flow, s.Step, s.Lang = FlowStatus, StepStatusEmail, lang
		metrics.ObserveDialogueStep(string(FlowStatus), "start", "advanced")
		return m.save(ctx, s, turn{text: text(lang, msgAskStatusEmail)})
	case containsAny(lower, draftWords):
		s.Flow, s.Step, s.Lang, s.Draft = FlowEmailDraft, StepDraftEmail, lang, &Draft{}
		metrics.ObserveDialogueStep(string(FlowEmailDraft), "start", "advanced")
		return m.save(ctx, s, turn{text: text(lang, msgStartDraft)})
	}
	return Reply{SessionID: s.ID, Text: text(lang, msgHelp)}, nil
}

func (m *Machine) save(ctx context.Context, s Session, t turn) (Reply, error) {
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return Reply{}, err
	}
	return Reply{SessionID: s.ID, Text: t.text, Flow: s.Flow, Step: s.Step}, nil
}

func (m *Machine) finish(ctx context.Context, s Session, t turn) (Reply, error) {
	if err := m.store.Delete(ctx, s.ID); err != nil {
		m.log.Warn("chat session cleanup failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	return Reply{SessionID: s.ID, Text: t.text, Flow: s.Flow, Done: true, DraftID: t.draftID}, nil
}

func (m *Machine) validEmail(s string) bool {
	return m.validate.Var(s, "required,email") == nil
}

func (m *Machine) statusEmail(ctx context.Context, s *Session, in string) (turn, error) {
	email := strings.ToLower(in)
	if !m.validEmail(email) {
		return turn{text: text(s.Lang, msgInvalidEmail), result: "retry"}, nil
	}
	state, err := m.dir.AccountStatus(ctx, email)
	if err != nil {
		return turn{}, fmt.Errorf("account status: %w", err)
	}
	key := msgStatusNotFound
	switch state {
	case model.AccountNotExhibitor:
		key = msgStatusNotExhibitor
	case model.AccountActive:
		key = msgStatusActive
	case model.AccountPending:
		key = msgStatusPending
	}
	return turn{text: text(s.Lang, key), result: "completed"}, nil
}

func (m *Machine) register(ctx context.Context, s *Session, in string) (turn, error) {
	if s.Registration == nil {
		s.Registration = &Registration{}
	}
	r := s.Registration
	lang := s.Lang
	retry := func(key msgKey, args ...any) (turn, error) {
		return turn{text: text(lang, key, args...), result: "retry"}, nil
	}
	next := func(step Step, key msgKey, args ...any) (turn, error) {
		s.Step = step
		return turn{text: text(lang, key, args...), result: "advanced"}, nil
	}

	switch s.Step {
	case StepEmail:
		email := strings.ToLower(in)
		if !m.validEmail(email) {
			return retry(msgInvalidEmail)
		}
		taken, err := m.dir.EmailTaken(ctx, email)
		if err != nil {
			return turn{}, fmt.Errorf("email lookup: %w", err)
		}
		if taken {
			return retry(msgEmailTaken)
		}
		r.Email = email
		return next(StepFirstName, msgAskFirstName)

	case StepFirstName:
		if utf8.RuneCountInString(in) < minNameLen {
			return retry(msgNameTooShort)
		}
		r.FirstName = in
		return next(StepLastName, msgAskLastName)

	case StepLastName:
		if utf8.RuneCountInString(in) < minNameLen {
			return retry(msgNameTooShort)
		}
		r.LastName = in
		return next(StepPassword, msgAskPassword)

	case StepPassword:
		if utf8.RuneCountInString(in) < minPasswordLen {
			return retry(msgPasswordTooShort)
		}
		h, err := m.hash(in)
		if err != nil {
			return turn{}, fmt.Errorf("hash password: %w", err)
		}
		r.PasswordHash = h
		return next(StepPhone, msgAskPhone)

	case StepPhone:
		if !slices.Contains(skipWords, strings.ToLower(in)) {
			r.Phone = in
		}
		return next(StepCountry, msgAskCountry)

	case StepCountry:
		if utf8.RuneCountInString(in) < minNameLen {
			return retry(msgInvalidCountry)
		}
		r.Country = in
		return next(StepRole, msgAskRole)

	case StepRole:
		switch lower := strings.ToLower(in); {
		case slices.Contains(exhibitorWords, lower):
			r.Role = model.RoleExhibitor
			return next(StepCompany, msgAskCompany)
		case slices.Contains(userWords, lower):
			r.Role = model.RoleUser
			return next(StepConfirm, msgAskConfirm, summary(lang, r))
		}
		return retry(msgInvalidRole)

	case StepCompany:
		if utf8.RuneCountInString(in) < minNameLen {
			return retry(msgCompanyTooShort)
		}
		r.CompanyName = in
		list, err := m.dir.Specializations(ctx)
		if err != nil {
			return turn{}, fmt.Errorf("list specializations: %w", err)
		}
		return next(StepSpecialization, msgAskSpecialization, specializationList(lang, list))

	case StepSpecialization:
		list, err := m.dir.Specializations(ctx)
		if err != nil {
			return turn{}, fmt.Errorf("list specializations: %w", err)
		}
		sp, ok := pickSpecialization(list, in)
		if !ok {
			return retry(msgInvalidSpecialization, specializationList(lang, list))
		}
		id := sp.ID
		r.SpecializationID, r.SpecializationName = &id, sp.Name(string(lang))
		pkgs, err := m.dir.ActivePackages(ctx)
		if err != nil {
			return turn{}, fmt.Errorf("list packages: %w", err)
		}
		return next(StepPackage, msgAskPackage, packageList(lang, pkgs))

	case StepPackage:
		pkgs, err := m.dir.ActivePackages(ctx)
		if err != nil {
			return turn{}, fmt.Errorf("list packages: %w", err)
		}
		p, ok := pickPackage(pkgs, in)
		if !ok {
			return retry(msgInvalidPackage, packageList(lang, pkgs))
		}
		id := p.ID
		r.PackageID, r.PackageName = &id, p.Name(string(lang))
		return next(StepConfirm, msgAskConfirm, summary(lang, r))

	case StepConfirm:
		if !slices.Contains(confirmWords, strings.ToLower(in)) {
			return turn{text: text(lang, msgRegistrationCancelled), result: "cancelled"}, nil
		}
		return m.submit(ctx, s)
	}

	// a step that does not belong to the flow; restart it
	s.Step, s.Registration = StepEmail, &Registration{}
	return turn{text: text(lang, msgStartRegistration), result: "retry"}, nil
}

func (m *Machine) submit(ctx context.Context, s *Session) (turn, error) {
	r := s.Registration
	req := model.RegistrationRequest{
		Email:            r.Email,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		PasswordHash:     r.PasswordHash,
		Phone:            r.Phone,
		Country:          r.Country,
		Role:             r.Role,
		CompanyName:      r.CompanyName,
		SpecializationID: r.SpecializationID,
		PackageID:        r.PackageID,
	}
	if err := m.dir.CreateRegistration(ctx, &req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return turn{text: text(s.Lang, msgEmailTaken), result: "cancelled"}, nil
		}
		return turn{}, fmt.Errorf("create registration: %w", err)
	}
	m.log.Info("registration request submitted", zap.Uint64("request_id", req.ID), zap.String("role", req.Role))
	if req.Role == model.RoleExhibitor {
		return turn{text: text(s.Lang, msgRegisteredExhibitor), result: "completed"}, nil
	}
	return turn{text: text(s.Lang, msgRegistered), result: "completed"}, nil
}

func specializationList(lang Lang, list []model.Specialization) string {
	var b strings.Builder
	for i, sp := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, sp.Name(string(lang)))
	}
	return b.String()
}

func packageList(lang Lang, list []model.Package) string {
	var b strings.Builder
	for i, p := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s - %s %s", i+1, p.Name(string(lang)), p.Price.StringFixed(2), p.Currency)
	}
	return b.String()
}

// pickSpecialization accepts a 1-based list number or a name in either
// language.
func pickSpecialization(list []model.Specialization, in string) (model.Specialization, bool) {
	if n, err := strconv.Atoi(in); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1], true
		}
		return model.Specialization{}, false
	}
	for _, sp := range list {
		if strings.EqualFold(sp.NameEn, in) || sp.NameAr == in {
			return sp, true
		}
	}
	return model.Specialization{}, false
}

func pickPackage(list []model.Package, in string) (model.Package, bool) {
	if n, err := strconv.Atoi(in); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1], true
		}
		return model.Package{}, false
	}
	for _, p := range list {
		if strings.EqualFold(p.NameEn, in) || p.NameAr == in {
			return p, true
		}
	}
	return model.Package{}, false
}

func summary(lang Lang, r *Registration) string {
	type line struct{ ar, en, v string }
	lines := []line{
		{"البريد الإلكتروني", "Email", r.Email},
		{"الاسم", "Name", r.FirstName + " " + r.LastName},
		{"الهاتف", "Phone", r.Phone},
		{"الدولة", "Country", r.Country},
		{"نوع الحساب", "Account type", r.Role},
		{"الشركة", "Company", r.CompanyName},
		{"التخصص", "Specialization", r.SpecializationName},
		{"الباقة", "Package", r.PackageName},
	}
	var b strings.Builder
	if lang == LangEN {
		b.WriteString("Your details:")
	} else {
		b.WriteString("بياناتك:")
	}
	for _, l := range lines {
		if l.v == "" {
			continue
		}
		label := l.ar
		if lang == LangEN {
			label = l.en
		}
		fmt.Fprintf(&b, "\n- %s: %s", label, l.v)
	}
	return b.String()
}
