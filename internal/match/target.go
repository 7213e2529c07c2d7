package match

import "strconv"

type TargetKind string

const (
	TargetHome  TargetKind = "home"
	TargetLogin TargetKind = "login"
	TargetMatch TargetKind = "match"
)

// Target is a navigation destination requested by the engine.
type Target struct {
	Kind    TargetKind
	MatchID int64
}

func Home() Target { return Target{Kind: TargetHome} }
func Login() Target { return Target{Kind: TargetLogin} }
func MatchPage(id int64) Target { return Target{Kind: TargetMatch, MatchID: id} }

func (t Target) Path() string {
	switch t.Kind {
	case TargetMatch:
		return "/game/" + strconv.FormatInt(t.MatchID, 10)
	case TargetLogin:
		return "/login"
	default:
		return "/home"
	}
}

// Identity is the authenticated user as reported by the auth service.
type Identity struct {
	ID    int64
	Email string
}

// MarkResult is the server's verdict on a mark-slot command.
type MarkResult struct {
	Message  string
	Marked   int
	Complete bool
	Cheater  bool
	Winner   bool
}

// OpenMatch is one entry of the open-matches listing.
type OpenMatch struct {
	ID           int64
	HostEmail    string
	MaxPlayers   int
	TotalPlayers int
	CreatedAt    string
}

type Page struct {
	Matches []OpenMatch
	Current int
	Last    int
}
