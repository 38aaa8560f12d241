package transport

// Middleware decorates a Runner.
type Middleware func(Runner) Runner

// Chain folds middlewares into one. The first argument ends up outermost, so
// Chain(a, b)(r) behaves like a(b(r)).
func Chain(middlewares ...Middleware) Middleware {
	return func(r Runner) Runner {
		wrapped := r
		for i := range middlewares {
			wrapped = middlewares[len(middlewares)-1-i](wrapped)
		}
		return wrapped
	}
}
