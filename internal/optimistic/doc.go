// Package optimistic applies local changes to a state.Store immediately and
// reconciles them with the remote API in the background.
//
// A Mutation has two halves. Apply is a pure transform of the current value
// and runs synchronously inside Mutate, so the caller's next read already sees
// the provisional value. Commit runs on its own goroutine and returns the
// canonical value reported by the server.
//
//	before ──Apply──▶ provisional ──Commit ok──▶ canonical
//	                       │
//	                       └──Commit err──▶ before (restored exactly)
//
// Every operation takes a sequence number when it is issued. A completion is
// applied only if no operation with a higher number has been confirmed yet;
// otherwise it is logged and dropped, though its caller still receives the
// result through Pending. Rollbacks follow the same rule but never advance the
// confirmed mark, so an older success can still land after a newer failure.
//
// Replace is the read-only sibling of Mutate: it fetches a snapshot with no
// provisional step and shares the same sequence guard. Search results use it
// so the response to the most recently issued query always wins.
package optimistic
