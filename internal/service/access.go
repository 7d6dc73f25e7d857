package service

import "github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"

// CanView decides whether a viewer may watch a session. Pure function,
// re-evaluated on every connection attempt. An empty viewerID means the
// caller is unauthenticated and may only see public sessions.
func CanView(sess *model.LiveSession, viewerID string) bool {
	if sess.IsPublic() {
		return true
	}
	if viewerID == "" {
		return false
	}
	if viewerID == sess.OwnerID {
		return true
	}
	_, ok := sess.AllowedViewers[viewerID]
	return ok
}
