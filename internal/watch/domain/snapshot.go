package domain

import "time"

// Snapshot is a read-only copy of the registry. Main and Alternative keep
// insertion order; Blocked maps each marked domain to when it was marked.
type Snapshot struct {
	Main        []Domain
	Alternative []Domain
	Blocked     map[Domain]time.Time
}

// IsBlocked reports whether d was last observed as blocked.
func (s Snapshot) IsBlocked(d Domain) bool {
	_, ok := s.Blocked[d]
	return ok
}

// List returns the domains of the given list.
func (s Snapshot) List(l List) []Domain {
	switch l {
	case ListMain:
		return s.Main
	case ListAlternative:
		return s.Alternative
	default:
		return nil
	}
}

// Candidates returns main ∪ alternative with duplicates collapsed, in
// first-seen order.
func (s Snapshot) Candidates() []Domain {
	seen := make(map[Domain]struct{}, len(s.Main)+len(s.Alternative))
	out := make([]Domain, 0, len(s.Main)+len(s.Alternative))
	for _, list := range [][]Domain{s.Main, s.Alternative} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// DomainStatus is one row of a listing.
type DomainStatus struct {
	Domain    Domain     `json:"domain"`
	List      List       `json:"list"`
	Apex      string     `json:"apex"`
	Blocked   bool       `json:"blocked"`
	BlockedAt *time.Time `json:"blocked_at,omitempty"`
}

// Statuses flattens the snapshot into per-list rows, main first.
func (s Snapshot) Statuses() []DomainStatus {
	out := make([]DomainStatus, 0, len(s.Main)+len(s.Alternative))
	for _, l := range Lists() {
		for _, d := range s.List(l) {
			st := DomainStatus{Domain: d, List: l, Apex: d.Apex()}
			if at, ok := s.Blocked[d]; ok {
				at := at
				st.Blocked = true
				st.BlockedAt = &at
			}
			out = append(out, st)
		}
	}
	return out
}
