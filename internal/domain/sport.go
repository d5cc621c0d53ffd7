package domain

// Sport identifies one of the supported leagues.
type Sport string

const (
	SportMLB Sport = "mlb"
	SportNBA Sport = "nba"
)

// String returns the string representation of Sport.
func (s Sport) String() string {
	return string(s)
}

// IsValid checks if the sport is a supported value.
func (s Sport) IsValid() bool {
	return s == SportMLB || s == SportNBA
}

// Side is one of the two competing teams in a contest.
type Side string

const (
	SideHome Side = "HOME"
	SideAway Side = "AWAY"
)

// Sides lists both sides in column order (away first, as the feature tables do).
var Sides = []Side{SideAway, SideHome}

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}
