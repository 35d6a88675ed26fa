package common

import coreerrors "launchpad/core/errors"

var ErrWindowExceeded = coreerrors.New(coreerrors.KindCapacity, "RateLimited", "rate limit exceeded for current window")

// Window tracks how many calls were admitted since Start.
type Window struct {
	Start uint64
	Count uint64
}

// WindowLimit bounds calls per window. A zero Max disables the limit.
type WindowLimit struct {
	Max     uint64
	Seconds uint64
}

// CheckWindow admits one more call at now. When Seconds have elapsed since
// prev.Start the window restarts at now. On rejection prev is returned
// unchanged.
func CheckWindow(limit WindowLimit, now uint64, prev Window) (Window, error) {
	next := prev
	if now >= prev.Start && now-prev.Start >= limit.Seconds {
		next = Window{Start: now}
	}
	if limit.Max > 0 && next.Count >= limit.Max {
		return prev, ErrWindowExceeded
	}
	count, err := Add(next.Count, 1)
	if err != nil {
		return prev, err
	}
	next.Count = count
	return next, nil
}
