package grading

// ResolveIDs maps login IDs to internal IDs by filtering the roster.
// The IDs follow roster order, not request order. Requested logins missing
// from the roster do not appear in ids; they are returned in unresolved,
// deduplicated, in request order.
func ResolveIDs(loginIDs []string, students Roster) (ids []int64, unresolved []string) {
	wanted := make(map[string]bool, len(loginIDs))
	for _, l := range loginIDs {
		wanted[l] = false
	}
	ids = []int64{}
	for _, s := range students {
		if _, ok := wanted[s.LoginID]; ok {
			ids = append(ids, s.ID)
			wanted[s.LoginID] = true
		}
	}
	for _, l := range loginIDs {
		if found, ok := wanted[l]; ok && !found {
			unresolved = append(unresolved, l)
			delete(wanted, l)
		}
	}
	return ids, unresolved
}
