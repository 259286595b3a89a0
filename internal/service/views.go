package service

import (
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

type resetter interface {
	Reset()
}

// resetOnSignOut drops the state of views whenever the session ends or a new
// login replaces it, so nothing loaded for one user is shown to the next.
func resetOnSignOut(sessions *session.Manager, views ...resetter) (unsubscribe func()) {
	if sessions == nil {
		return func() {}
	}
	return sessions.Subscribe(func(tr session.Transition) {
		if tr.To != session.StateAnonymous && tr.Reason != session.ReasonLogin {
			return
		}
		for _, v := range views {
			v.Reset()
		}
	})
}
