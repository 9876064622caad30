package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestRunTournament_SameInputsProduceIdenticalResults(t *testing.T) {
	buildAgents := func() []Agent {
		return []Agent{
			&scriptedAgent{id: "alice", price: decimal.NewFromInt(25)},
			&scriptedAgent{id: "bob", price: decimal.NewFromInt(15)},
		}
	}

	first, err := RunTournament(smallTournamentConfig(), buildAgents())
	check.Nil(t, err)
	second, err := RunTournament(smallTournamentConfig(), buildAgents())
	check.Nil(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("two runs with identical inputs diverged:\n%s", diff)
	}
}
