package match

import (
	"errors"
	"testing"
)

func TestValidateSeatCount(t *testing.T) {
	cases := []struct {
		name  string
		seats int
		confs []Player
		want  error
	}{
		{name: "unknown seats", seats: 0, confs: []Player{{ID: 1}, {ID: 2}, {ID: 3}}},
		{name: "within seats", seats: 4, confs: []Player{{ID: 1}, {ID: 2}}},
		{name: "over seats", seats: 2, confs: []Player{{ID: 1}, {ID: 2}, {ID: 3}}, want: ErrTooManyConfirmations},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Snapshot{MatchID: 1, Phase: PhaseRematchPending, MaxPlayers: tc.seats, RematchConfirmations: tc.confs}
			err := s.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateRejectsNegativeSeats(t *testing.T) {
	s := &Snapshot{MatchID: 1, Phase: PhaseStarted, MaxPlayers: -1}
	if err := s.Validate(); err == nil {
		t.Fatalf("negative seat count should be rejected")
	}
}
