package entities

import "time"

type OverlayKey struct {
	AdSetID string
	Field   Field
}

// Overlay is a local optimistic write shown on top of the pulled snapshot.
// ConfirmedAt stays zero while the write is in flight; once the store
// accepts it, ConfirmedAt holds the server timestamp of the write and the
// overlay lives until a pull carries a field timestamp at or after it.
type Overlay struct {
	Key         OverlayKey
	Value       FieldValue
	PreWrite    FieldValue
	Previous    *Overlay
	LocalAt     time.Time
	ConfirmedAt time.Time
}

func (o Overlay) Confirmed() bool {
	return !o.ConfirmedAt.IsZero()
}

// SupersededBy reports whether a pulled row already reflects this write or a
// later one.
func (o Overlay) SupersededBy(row AdSetView) bool {
	if !o.Confirmed() {
		return false
	}
	return !row.Timestamp(o.Key.Field).Before(o.ConfirmedAt)
}

type NoticeKind string

const (
	// NoticeConflictOverwrite is informational: another writer's later value
	// replaced this session's optimistic one.
	NoticeConflictOverwrite NoticeKind = "conflict_overwrite"
	NoticeWriteRejected     NoticeKind = "write_rejected"
	NoticeStaleRead         NoticeKind = "stale_read"
)

type Notice struct {
	Kind    NoticeKind
	AdSetID string
	Field   Field
	Local   FieldValue
	Server  FieldValue
	Message string
	At      time.Time
}

// SessionView is the snapshot with every live overlay applied.
type SessionView struct {
	Snapshot   Snapshot
	Pending    map[OverlayKey]bool
	LastPullAt time.Time
	Stale      bool
	Failures   int
}
