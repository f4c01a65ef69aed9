package backend

// Kind identifies the category of automation target a session talks to.
type Kind int

const (
	// KindWeb is a browser automation session.
	KindWeb Kind = iota
	// KindAPI is an HTTP client session.
	KindAPI
	// KindMobile is a mobile automation session.
	KindMobile
)

// Kinds lists every backend kind in the order teardown walks them.
var Kinds = []Kind{KindWeb, KindAPI, KindMobile}

func (k Kind) String() string {
	switch k {
	case KindWeb:
		return "web"
	case KindAPI:
		return "api"
	case KindMobile:
		return "mobile"
	default:
		return "unknown"
	}
}
