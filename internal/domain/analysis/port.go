package analysis

import "context"

// StateStore port: latest Result per tab, last write wins
type StateStore interface {
	Put(ctx context.Context, tab TabID, r *Result) error
	// Get returns (nil, false, nil) when the tab has no stored result.
	Get(ctx context.Context, tab TabID) (*Result, bool, error)
	Evict(ctx context.Context, tab TabID) error
}

// BadgeSink port: renders the badge of a tab
type BadgeSink interface {
	SetBadge(ctx context.Context, tab TabID, b Badge) error
}

// WarningSender port: pushes SHOW_WARNING to a tab's content script
type WarningSender interface {
	SendWarning(ctx context.Context, tab TabID, r *Result) error
}
