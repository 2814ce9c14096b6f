package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
)

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := NewDocument(
		id.DocumentID(uuid.New()),
		id.OrgID(uuid.New()),
		id.DocumentClassIncoming,
		"Water damage report",
		"",
		id.ActorID(uuid.New()),
		false,
		time.Now(),
	)
	require.NoError(t, err)
	return doc
}

func TestNewDocument(t *testing.T) {
	t.Run("valid input builds a draft", func(t *testing.T) {
		doc := newTestDocument(t)
		assert.Equal(t, StatusDraft, doc.Status)
		assert.Equal(t, DecisionNone, doc.Decision)
		assert.Equal(t, doc.CreatorID, doc.LastEditorID)
		assert.Nil(t, doc.RegistrationNumber)
		assert.False(t, doc.HasLedgerEntries)
	})

	t.Run("missing fields violate invariants", func(t *testing.T) {
		now := time.Now()
		docID := id.DocumentID(uuid.New())
		orgID := id.OrgID(uuid.New())
		creator := id.ActorID(uuid.New())

		cases := []struct {
			name string
			fn   func() (*Document, error)
		}{
			{"nil document id", func() (*Document, error) {
				return NewDocument(id.DocumentID{}, orgID, id.DocumentClassIncoming, "s", "", creator, false, now)
			}},
			{"nil org id", func() (*Document, error) {
				return NewDocument(docID, id.OrgID{}, id.DocumentClassIncoming, "s", "", creator, false, now)
			}},
			{"invalid class", func() (*Document, error) {
				return NewDocument(docID, orgID, id.DocumentClass("memo"), "s", "", creator, false, now)
			}},
			{"empty subject", func() (*Document, error) {
				return NewDocument(docID, orgID, id.DocumentClassIncoming, "", "", creator, false, now)
			}},
			{"nil creator", func() (*Document, error) {
				return NewDocument(docID, orgID, id.DocumentClassIncoming, "s", "", id.ActorID{}, false, now)
			}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := tc.fn()
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			})
		}
	})
}

func TestDocumentRegister(t *testing.T) {
	t.Run("first registration assigns number and status", func(t *testing.T) {
		doc := newTestDocument(t)
		require.NoError(t, doc.Register(42, 2026))
		require.NotNil(t, doc.RegistrationNumber)
		assert.Equal(t, 42, *doc.RegistrationNumber)
		assert.Equal(t, StatusRegistered, doc.Status)
		assert.Equal(t, "42/2026", doc.FormattedNumber())
	})

	t.Run("number is immutable once assigned", func(t *testing.T) {
		doc := newTestDocument(t)
		require.NoError(t, doc.Register(1, 2026))
		err := doc.Register(2, 2026)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, 1, *doc.RegistrationNumber)
	})

	t.Run("registering outside draft keeps the current status", func(t *testing.T) {
		doc := newTestDocument(t)
		doc.Status = StatusInWork
		require.NoError(t, doc.Register(7, 2026))
		assert.Equal(t, StatusInWork, doc.Status)
	})
}

func TestStatusTransitions(t *testing.T) {
	t.Run("legal moves", func(t *testing.T) {
		legal := []struct{ from, to LifecycleStatus }{
			{StatusDraft, StatusRegistered},
			{StatusRegistered, StatusInWork},
			{StatusRegistered, StatusDistributed},
			{StatusInWork, StatusDistributed},
			{StatusDistributed, StatusInWork},
			{StatusInWork, StatusInWork},
			{StatusDistributed, StatusResolved},
			{StatusResolved, StatusResolved},
			{StatusResolved, StatusArchived},
			{StatusInWork, StatusCancelled},
			{StatusResolved, StatusCancelled},
		}
		for _, m := range legal {
			assert.True(t, m.from.CanTransition(m.to), "%s -> %s", m.from, m.to)
		}
	})

	t.Run("illegal moves", func(t *testing.T) {
		illegal := []struct{ from, to LifecycleStatus }{
			{StatusResolved, StatusInWork},
			{StatusResolved, StatusDistributed},
			{StatusArchived, StatusInWork},
			{StatusArchived, StatusResolved},
			{StatusCancelled, StatusInWork},
			{StatusCancelled, StatusCancelled},
			{StatusRegistered, StatusArchived},
			{StatusDraft, StatusCancelled},
		}
		for _, m := range illegal {
			assert.False(t, m.from.CanTransition(m.to), "%s -> %s", m.from, m.to)
		}
	})

	t.Run("terminal statuses", func(t *testing.T) {
		assert.True(t, StatusArchived.Terminal())
		assert.True(t, StatusCancelled.Terminal())
		assert.False(t, StatusResolved.Terminal())
	})
}

func TestParseTerminalDecision(t *testing.T) {
	for _, valid := range []string{"", "approved", "rejected", "redirected"} {
		d, err := ParseTerminalDecision(valid)
		require.NoError(t, err)
		assert.Equal(t, TerminalDecision(valid), d)
	}

	_, err := ParseTerminalDecision("deferred")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	assert.True(t, DecisionApproved.Resolving())
	assert.True(t, DecisionRejected.Resolving())
	assert.False(t, DecisionRedirected.Resolving())
	assert.False(t, DecisionNone.Resolving())
}

func TestCanCancelAndArchive(t *testing.T) {
	doc := newTestDocument(t)

	doc.Status = StatusRegistered
	assert.Error(t, doc.CanCancel())
	assert.Error(t, doc.CanArchive())

	doc.Status = StatusInWork
	assert.NoError(t, doc.CanCancel())
	assert.Error(t, doc.CanArchive())

	doc.Status = StatusResolved
	assert.NoError(t, doc.CanCancel())
	assert.NoError(t, doc.CanArchive())

	doc.Status = StatusCancelled
	assert.Error(t, doc.CanCancel())
	assert.Error(t, doc.CanArchive())
}
