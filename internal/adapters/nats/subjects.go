package natsadapter

// Subjects and stream names.
const (
	RoutesStream = "ROUTES"

	routeSavedPrefix     = "routes.saved."
	RouteSavedWildcard   = "routes.saved.>"
	sessionUpdatesPrefix = "routes.session."
)

// RouteSavedSubject is the JetStream subject for a crew's saved routes.
func RouteSavedSubject(crewID string) string {
	return routeSavedPrefix + subjectToken(crewID)
}

// SessionSubject is the core NATS subject live viewers of a session
// subscribe to.
func SessionSubject(sessionID string) string {
	return sessionUpdatesPrefix + subjectToken(sessionID)
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		switch c {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			b[i] = '_'
		}
	}
	return string(b)
}
