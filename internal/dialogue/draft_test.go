package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type upperDrafter struct{ calls int }

func (d *upperDrafter) Draft(_ context.Context, _ Lang, company, subject string) (string, error) {
	d.calls++
	return "Hello " + company + " about " + subject, nil
}

func TestEmailDraftFlow(t *testing.T) {
	m, st, dir := newMachine()

	replies := converse(t, m,
		"help me write an email",
		"ACME@expo.test",
		"Stand layout for day two",
		"yes",
	)

	assert.Equal(t, FlowEmailDraft, replies[0].Flow)
	assert.Equal(t, StepDraftEmail, replies[0].Step)
	assert.Equal(t, StepSubject, replies[1].Step)
	assert.Equal(t, StepDraftConfirm, replies[2].Step)
	assert.Contains(t, replies[2].Text, "To: Acme Foods (acme@expo.test)")
	assert.Contains(t, replies[2].Text, "Dear Acme Foods,")
	assert.Contains(t, replies[2].Text, "Regarding Stand layout for day two")

	last := replies[3]
	assert.True(t, last.Done)
	assert.Equal(t, uint64(100), last.DraftID)
	assert.Contains(t, last.Text, "Email draft #100 saved.")
	assert.Empty(t, st.sessions)

	require.Len(t, dir.drafts, 1)
	d := dir.drafts[0]
	assert.Equal(t, uint64(7), d.ExhibitorID)
	assert.Equal(t, "acme@expo.test", d.Recipient)
	assert.Equal(t, "Stand layout for day two", d.Subject)
	assert.Equal(t, "en", d.Lang)
	assert.Contains(t, d.Body, "Acme Foods")
}

func TestEmailDraftRequiresExhibitor(t *testing.T) {
	m, st, _ := newMachine()

	replies := converse(t, m, "draft", "not-an-email", "visitor@expo.test")
	assert.Contains(t, replies[1].Text, "Invalid email")
	assert.Contains(t, replies[2].Text, "not registered as an exhibitor")
	assert.Equal(t, StepDraftEmail, st.sessions[replies[2].SessionID].Step)
}

func TestEmailDraftSubjectLength(t *testing.T) {
	m, st, _ := newMachine()

	replies := converse(t, m, "email", "acme@expo.test", "hi")
	assert.Contains(t, replies[2].Text, "3 to 200 characters")
	assert.Equal(t, StepSubject, st.sessions[replies[2].SessionID].Step)
}

func TestEmailDraftEditRegenerates(t *testing.T) {
	m, _, dir := newMachine()
	drafter := &upperDrafter{}
	m.WithDrafter(drafter)

	replies := converse(t, m, "compose", "acme@expo.test", "Catering", "edit", "Parking passes", "yes")
	assert.Equal(t, StepSubject, replies[3].Step)
	assert.Contains(t, replies[3].Text, "new subject")
	assert.Contains(t, replies[4].Text, "Hello Acme Foods about Parking passes")
	assert.Equal(t, 2, drafter.calls)

	require.Len(t, dir.drafts, 1)
	assert.Equal(t, "Parking passes", dir.drafts[0].Subject)
}

func TestEmailDraftDeclinedInArabic(t *testing.T) {
	m, st, dir := newMachine()

	replies := converse(t, m, "اكتب رسالة", "acme@expo.test", "جناح الشركة", "لا")
	assert.Contains(t, replies[2].Text, "تحية طيبة إلى شركة Acme Foods")
	assert.True(t, replies[3].Done)
	assert.Contains(t, replies[3].Text, "تم إلغاء عملية إنشاء الرسالة")
	assert.Empty(t, dir.drafts)
	assert.Empty(t, st.sessions)
}

func TestEmailDraftLookupFailureKeepsStep(t *testing.T) {
	m, st, dir := newMachine()
	first := converse(t, m, "email")
	dir.lookupErr = errors.New("db down")

	_, err := m.Handle(context.Background(), first[0].SessionID, "acme@expo.test")
	require.Error(t, err)
	assert.Equal(t, StepDraftEmail, st.sessions[first[0].SessionID].Step)
}

func TestBcryptHasher(t *testing.T) {
	h, err := BcryptHasher(bcrypt.MinCost)("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", h)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("secret1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("secret2")))

	m := NewMachine(newMemStore(), &fakeDirectory{}, BcryptHasher(bcrypt.MinCost), zap.NewNop())
	assert.NotNil(t, m)
}
