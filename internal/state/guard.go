package state

// Route is the outcome of the route guard.
type Route int

const (
	// RouteLoading means auth state is not known yet; show a placeholder.
	RouteLoading Route = iota
	// RouteSignIn means nobody is signed in; send the user to sign-in.
	RouteSignIn
	// RouteAllowed means the protected view may render.
	RouteAllowed
)

func (r Route) String() string {
	switch r {
	case RouteLoading:
		return "loading"
	case RouteSignIn:
		return "sign-in"
	case RouteAllowed:
		return "allowed"
	}
	return "unknown"
}

// Guard gates protected views on the identity slice.
func Guard(id Identity) Route {
	if !id.Initialized {
		return RouteLoading
	}
	if id.Session == nil {
		return RouteSignIn
	}
	return RouteAllowed
}
