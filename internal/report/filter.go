package report

// DefaultIgnore lists the statuses that are not worth reporting.
var DefaultIgnore = []string{"ok", "skipped"}

// Filter returns the actions whose status is not in ignore, in input order.
// A nil ignore uses DefaultIgnore; an empty non-nil slice keeps everything.
func Filter(actions []Action, ignore []string) []Action {
	if ignore == nil {
		ignore = DefaultIgnore
	}
	skip := make(map[string]struct{}, len(ignore))
	for _, status := range ignore {
		skip[status] = struct{}{}
	}

	relevant := make([]Action, 0, len(actions))
	for _, action := range actions {
		if _, ok := skip[action.Status]; ok {
			continue
		}
		relevant = append(relevant, action)
	}
	return relevant
}
