// Package merge decides how a freshly linearized transcript reconciles
// with what storage already holds for its natural key (source, source_id).
// The diff is a deliberately restricted longest-common-prefix comparison:
// repeated imports of a growing conversation append only the delta, while
// genuinely diverging histories are surfaced instead of silently merged.
package merge

import (
	"errors"
	"fmt"

	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/linearize"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

// ErrMergeConflict means the stored message sequence diverges from the
// new transcript before either ends. The conversation is neither merged
// nor duplicated; the caller records it as a per-item failure.
var ErrMergeConflict = errors.New("merge conflict: stored messages diverge from import")

type Kind int

const (
	// KindInsert creates a new conversation with all its messages.
	KindInsert Kind = iota
	// KindAppendTail appends only the new trailing messages to an
	// existing conversation and refreshes its title and updated_at.
	KindAppendTail
	// KindSkip leaves storage untouched.
	KindSkip
	// KindInsertSeparate creates a new conversation row that shares the
	// natural key with existing rows (keep-separate policy).
	KindInsertSeparate
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindAppendTail:
		return "append_tail"
	case KindSkip:
		return "skip"
	case KindInsertSeparate:
		return "insert_separate"
	}
	return "unknown"
}

// Existing is a stored conversation with its messages in order_index order.
type Existing struct {
	Conversation entities.Conversation
	Messages     []entities.Message
}

// WriteSet is the resolved outcome for one transcript.
type WriteSet struct {
	Kind       Kind
	Transcript *linearize.Transcript

	// ExistingID is the target conversation for KindAppendTail.
	ExistingID uint
	// NewMessages is the suffix to append for KindAppendTail, with
	// order_index continuing from the stored maximum.
	NewMessages []linearize.NormalizedMessage

	// SkipReason documents KindSkip outcomes for logging.
	SkipReason string
}

// Resolve applies the import policy, evaluated in order: skip empty,
// insert when unseen, keep separate, merge by prefix, or skip as already
// archived.
func Resolve(t *linearize.Transcript, existing []Existing, settings settingsstore.ImportSettings) (*WriteSet, error) {
	if settings.SkipEmptyConversations && len(t.Messages) == 0 {
		return &WriteSet{Kind: KindSkip, Transcript: t, SkipReason: "empty conversation"}, nil
	}

	if len(existing) == 0 {
		return &WriteSet{Kind: KindInsert, Transcript: t}, nil
	}

	if settings.KeepSeparate {
		return &WriteSet{Kind: KindInsertSeparate, Transcript: t}, nil
	}

	if settings.AutoMergeDuplicates {
		return resolveMerge(t, existing[0])
	}

	return &WriteSet{Kind: KindSkip, Transcript: t, SkipReason: "already archived"}, nil
}

// resolveMerge compares the stored sequence with the new transcript by
// (role, content) at matching positions.
func resolveMerge(t *linearize.Transcript, target Existing) (*WriteSet, error) {
	stored := target.Messages

	limit := len(stored)
	if len(t.Messages) < limit {
		limit = len(t.Messages)
	}

	for i := 0; i < limit; i++ {
		if stored[i].Role != t.Messages[i].Role || stored[i].Content != t.Messages[i].Content {
			return nil, fmt.Errorf("%w: position %d (conversation %s)", ErrMergeConflict, i, t.SourceID)
		}
	}

	if len(t.Messages) <= len(stored) {
		// Unchanged, or the export is a truncation of what we hold.
		// Either way storage already has everything.
		return &WriteSet{
			Kind:       KindSkip,
			Transcript: t,
			SkipReason: "no new messages",
		}, nil
	}

	suffix := make([]linearize.NormalizedMessage, len(t.Messages)-len(stored))
	copy(suffix, t.Messages[len(stored):])
	for i := range suffix {
		suffix[i].OrderIndex = len(stored) + i
	}

	return &WriteSet{
		Kind:        KindAppendTail,
		Transcript:  t,
		ExistingID:  target.Conversation.ID,
		NewMessages: suffix,
	}, nil
}
