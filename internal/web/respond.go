package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/conorfennell/studydeck/internal/session"
)

type ctxKey struct{}

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(ctxKey{}).(string)
	return user
}

// contextIdentity resolves the user from the request that triggered the
// event.
type contextIdentity struct{}

func (contextIdentity) CurrentUser(ctx context.Context) (string, bool) {
	user := userFrom(ctx)
	return user, user != ""
}

type noticeJSON struct {
	Kind    session.NoticeKind `json:"kind"`
	Message string             `json:"message"`
}

// noticeBuffer holds notices until the client next reads the session.
type noticeBuffer struct {
	mu      sync.Mutex
	notices []noticeJSON
}

func (b *noticeBuffer) Notify(n session.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, noticeJSON{Kind: n.Kind, Message: n.Message})
}

func (b *noticeBuffer) drain() []noticeJSON {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

type sourceJSON struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
