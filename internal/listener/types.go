// Package listener concurrently watches social posts and news feeds,
// matches their content against the active market set, and triggers paper
// trades on a match.
package listener

import "github.com/dantezy/snipe-engine/internal/radar"

// Post is a single social post as consumed by the matcher: only the
// dedup key (Link) and the matcher input (Text) are used, per SPEC_FULL
// §6's external-interface note.
type Post struct {
	Link string
	Text string
}

// NewsEntry is a single RSS/Atom feed entry.
type NewsEntry struct {
	Link    string
	Title   string
	Summary string
}

// Target is one market the Listener is actively watching, carrying the
// derived state the matcher needs so it never has to recompute it per post.
type Target struct {
	Market   radar.Market
	Keywords []string
}
