package dashboard

// handlerOptions holds configuration for a dashboard Handler.
// This is unexported; use HandlerOption functions to configure.
type handlerOptions struct {
	// PathPrefix is where the handler is mounted (e.g. "/_pagecheck").
	PathPrefix string
	// Title is shown above the event list.
	Title string
	// TruncateAfter limits the number of events shown in the event list.
	TruncateAfter uint64
}

// HandlerOption configures a dashboard Handler.
type HandlerOption func(*handlerOptions)

// WithPathPrefix sets the path prefix where the handler is mounted.
// For example, "/_pagecheck" if mounted at that path.
// This is used for generating correct URLs in the dashboard.
func WithPathPrefix(prefix string) HandlerOption {
	return func(o *handlerOptions) {
		o.PathPrefix = prefix
	}
}

// WithTitle sets the page title.
func WithTitle(title string) HandlerOption {
	return func(o *handlerOptions) {
		o.Title = title
	}
}

// WithTruncateAfter limits the number of events shown in the event list.
// Default is 200 if not specified.
func WithTruncateAfter(limit uint64) HandlerOption {
	return func(o *handlerOptions) {
		o.TruncateAfter = limit
	}
}
