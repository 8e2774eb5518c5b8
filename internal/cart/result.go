package cart

// Recovery tells a call site how to reconcile after a failed mutation.
type Recovery int

const (
	// RecoverNone: nothing to reconcile; the returned view is still valid.
	RecoverNone Recovery = iota

	// RecoverRefetch: local state may have diverged from the server;
	// re-fetch the authoritative cart before showing it again.
	RecoverRefetch
)

// Result is the outcome of a cart operation. Failure handling is an explicit
// branch: a failed result carries the error and a Recovery action instead of
// leaving reconciliation to side effects.
type Result struct {
	cart     Cart
	err      error
	recovery Recovery
}

func success(c Cart) Result {
	return Result{cart: c}
}

func failure(err error, recovery Recovery) Result {
	return Result{err: err, recovery: recovery}
}

// Failed returns the error and true when the operation failed.
func (r Result) Failed() (error, bool) {
	return r.err, r.err != nil
}

// Cart returns the resulting cart view and true when the operation succeeded.
func (r Result) Cart() (Cart, bool) {
	return r.cart, r.err == nil
}

// Recovery returns the reconciliation action for a failed operation.
func (r Result) Recovery() Recovery {
	return r.recovery
}
