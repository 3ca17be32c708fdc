package session

import (
	"context"

	"github.com/conorfennell/studydeck/internal/domain"
)

//go:generate mockgen -source=deps.go -destination=mock_session/mock_session.go -package=mock_session Identity,Reporter,Notifier,Clock

// Identity supplies the user on whose behalf progress is persisted.
type Identity interface {
	CurrentUser(ctx context.Context) (userID string, ok bool)
}

// Reporter receives the summary of every session that runs to its deadline.
type Reporter interface {
	Report(ctx context.Context, summary domain.SessionSummary) error
}

// Notifier shows short-lived, non-fatal notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Clock calls tick once per second between Start and Stop.
type Clock interface {
	Start(tick func()) error
	Stop()
}

// StaticIdentity is an Identity for a fixed user. The empty value means
// nobody is signed in.
type StaticIdentity string

func (s StaticIdentity) CurrentUser(context.Context) (string, bool) {
	return string(s), s != ""
}

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	NoticeUnauthenticated NoticeKind = "unauthenticated"
	NoticePersistFailed   NoticeKind = "persist_failed"
	NoticeReportFailed    NoticeKind = "report_failed"
)

// Notice is a transient message for the user.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
