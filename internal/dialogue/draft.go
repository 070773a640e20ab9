package dialogue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

const (
	minSubjectLen = 3
	maxSubjectLen = 200
)

// Drafter writes the body of a letter to an exhibitor's company.
type Drafter interface {
	Draft(ctx context.Context, lang Lang, company, subject string) (string, error)
}

// TemplateDrafter fills a fixed greeting template.
type TemplateDrafter struct{}

func (TemplateDrafter) Draft(_ context.Context, lang Lang, company, subject string) (string, error) {
	return text(lang, msgDraftBody, company, subject), nil
}

// draftEmail runs email -> subject -> confirm.  The body is written as soon
// as the subject is accepted, and "edit" at confirm goes back to subject.
func (m *Machine) draftEmail(ctx context.Context, s *Session, in string) (turn, error) {
	if s.Draft == nil {
		s.Draft = &Draft{}
	}
	d := s.Draft
	lang := s.Lang
	retry := func(key msgKey) (turn, error) {
		return turn{text: text(lang, key), result: "retry"}, nil
	}

	switch s.Step {
	case StepDraftEmail:
		email := strings.ToLower(in)
		if !m.validEmail(email) {
			return retry(msgInvalidEmail)
		}
		x, err := m.dir.ExhibitorByEmail(ctx, email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return retry(msgStatusNotExhibitor)
		case err != nil:
			return turn{}, fmt.Errorf("exhibitor lookup: %w", err)
		}
		d.ExhibitorID, d.Email, d.CompanyName = x.ID, email, x.CompanyName
		s.Step = StepSubject
		return turn{text: text(lang, msgAskSubject), result: "advanced"}, nil

	case StepSubject:
		if n := utf8.RuneCountInString(in); n < minSubjectLen || n > maxSubjectLen {
			return retry(msgSubjectLength)
		}
		body, err := m.drafter.Draft(ctx, lang, d.CompanyName, in)
		if err != nil {
			return turn{}, fmt.Errorf("draft body: %w", err)
		}
		d.Subject, d.Body = in, body
		s.Step = StepDraftConfirm
		return turn{text: text(lang, msgDraftPreview, d.CompanyName, d.Email, d.Subject, d.Body), result: "advanced"}, nil

	case StepDraftConfirm:
		lower := strings.ToLower(in)
		switch {
		case slices.Contains(acceptWords, lower):
			return m.saveDraft(ctx, s)
		case slices.Contains(editWords, lower):
			d.Subject, d.Body = "", ""
			s.Step = StepSubject
			return turn{text: text(lang, msgAskNewSubject), result: "advanced"}, nil
		}
		return turn{text: text(lang, msgDraftCancelled), result: "cancelled"}, nil
	}

	s.Step, s.Draft = StepDraftEmail, &Draft{}
	return turn{text: text(lang, msgStartDraft), result: "retry"}, nil
}

func (m *Machine) saveDraft(ctx context.Context, s *Session) (turn, error) {
	d := s.Draft
	rec := model.EmailDraft{
		ExhibitorID: d.ExhibitorID,
		Recipient:   d.Email,
		CompanyName: d.CompanyName,
		Subject:     d.Subject,
		Body:        d.Body,
		Lang:        string(s.Lang),
	}
	if err := m.dir.SaveDraft(ctx, &rec); err != nil {
		return turn{}, fmt.Errorf("save draft: %w", err)
	}
	m.log.Info("email draft saved", zap.Uint64("draft_id", rec.ID), zap.Uint64("exhibitor_id", rec.ExhibitorID))
	return turn{
		text:    text(s.Lang, msgDraftSaved, rec.ID, d.CompanyName, d.Email, d.Subject, d.Body),
		result:  "completed",
		draftID: rec.ID,
	}, nil
}
