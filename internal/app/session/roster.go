package session

import "hzchat-client/internal/app/user"

// roster is the ordered, identifier-keyed view of other users.
// Announcements that arrive before the self identifier is known are held back
// so the self filter can be applied to them.
type roster struct {
	order []string
	users map[string]user.User
	held  []user.User
}

// announce records u unless it is self or already known. selfID is empty while
// the identity is unresolved, in which case u is held. It reports whether the
// visible roster changed.
func (r *roster) announce(u user.User, selfID string) bool {
	if selfID == "" {
		r.held = append(r.held, u)
		return false
	}
	return r.add(u, selfID)
}

func (r *roster) add(u user.User, selfID string) bool {
	if u.ID == selfID {
		return false
	}
	if _, ok := r.users[u.ID]; ok {
		return false
	}

	if r.users == nil {
		r.users = make(map[string]user.User)
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	return true
}

// identify applies the freshly resolved selfID: self is purged if an earlier
// connection announced it, then held announcements are replayed in order.
func (r *roster) identify(selfID string) {
	if _, ok := r.users[selfID]; ok {
		delete(r.users, selfID)
		kept := r.order[:0]
		for _, id := range r.order {
			if id != selfID {
				kept = append(kept, id)
			}
		}
		r.order = kept
	}

	held := r.held
	r.held = nil
	for _, u := range held {
		r.add(u, selfID)
	}
}

func (r *roster) list() []user.User {
	out := make([]user.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}

func (r *roster) has(id string) bool {
	_, ok := r.users[id]
	return ok
}

func (r *roster) reset() {
	*r = roster{}
}
