package theme

import "context"

type contextKey struct{}

// NewContext returns ctx carrying c. Consumers get the controller from
// FromContext instead of a package-level global.
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the controller installed by NewContext. Reaching
// for it outside that scope is a programming error and panics.
func FromContext(ctx context.Context) *Controller {
	c, ok := ctx.Value(contextKey{}).(*Controller)
	if !ok || c == nil {
		panic("theme: controller used outside its provisioning scope; wrap the context with theme.NewContext")
	}
	return c
}
