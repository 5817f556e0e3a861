package reactor

import (
	"github.com/wuyongjia/hashmap"
)

// registry is the Handle -> EventHandler mapping described in §3. It is
// backed by github.com/wuyongjia/hashmap, the same concurrent map the
// teacher package reaches for in its SSL-connection variant
// (ssl.go: Connections *hashmap.HM). Only the reactor goroutine ever calls
// these methods, but the underlying map's own locking means a stray
// off-thread read (e.g. from a diagnostic goroutine) cannot corrupt it.
type registry struct {
	hm *hashmap.HM
}

func newRegistry() *registry {
	return &registry{hm: hashmap.New(0)}
}

// put inserts handler under handle, returning ErrAlreadyRegistered if the
// handle is already present. Membership here corresponds one-to-one with
// the handle's epoll subscription (§3 Registry invariant); the reactor is
// responsible for keeping the two in lockstep.
func (r *registry) put(handle int, handler EventHandler) error {
	if r.hm.Exists(handle) {
		return ErrAlreadyRegistered
	}
	r.hm.Put(handle, handler)
	return nil
}

// get looks up handle, returning ok=false if it is not currently
// registered (e.g. it was removed earlier in the same event batch).
func (r *registry) get(handle int) (EventHandler, bool) {
	v := r.hm.Get(handle)
	if v == nil {
		return nil, false
	}
	h, ok := v.(EventHandler)
	return h, ok
}

// delete removes handle from the registry. It is a no-op if the handle was
// never registered.
func (r *registry) delete(handle int) {
	r.hm.Remove(handle)
}

func (r *registry) len() int {
	return r.hm.GetCount()
}
