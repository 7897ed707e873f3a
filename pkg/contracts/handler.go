package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

type composite []Handler

// Compose bundles several handlers into one so the application server can
// mount them together.
func Compose(handlers ...Handler) Handler {
	return composite(handlers)
}

func (c composite) RegisterRoutes(router *httprouter.Router) {
	for _, h := range c {
		h.RegisterRoutes(router)
	}
}
