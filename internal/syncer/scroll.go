package syncer

import (
	"context"
	"errors"
)

// LoadMoreThreshold is the remaining content distance at which older items are requested.
const LoadMoreThreshold = 1000

// ScrollMetrics describes the consumer's position in the rendered collection.
// Units are arbitrary but must agree with LoadMoreThreshold.
type ScrollMetrics struct {
	Offset   float64
	Viewport float64
	Content  float64
}

// NearBottom reports whether the viewport is within LoadMoreThreshold of the end.
func (m ScrollMetrics) NearBottom() bool {
	return m.Content-(m.Offset+m.Viewport) <= LoadMoreThreshold
}

// OnScroll starts a LoadMore when the consumer is near the bottom, older items
// may exist and no sync is running. It reports whether a load ran.
func (e *Engine) OnScroll(ctx context.Context, m ScrollMetrics) (bool, error) {
	if !m.NearBottom() {
		return false, nil
	}
	st := e.State()
	if !st.HasMore || st.Phase != Idle {
		return false, nil
	}

	_, err := e.Sync(ctx, LoadMore)
	if errors.Is(err, ErrBusy) {
		return false, nil
	}
	return true, err
}
