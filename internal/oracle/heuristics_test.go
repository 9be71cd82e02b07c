package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksObviouslyExclusive(t *testing.T) {
	cases := []struct {
		title string
		tags  []string
		want  bool
	}{
		{"Who will win the 2028 Democratic nomination?", nil, true},
		{"Which team will win the Super Bowl?", nil, true},
		{"2028 Presidential Election Winner?", nil, true},
		{"What will the Fed funds rate be in December?", nil, true},
		{"Next Prime Minister of the UK", nil, true},
		{"Random market group", []string{"Elections"}, true},
		{"Bitcoin price targets", []string{"tournaments"}, true},
		{"Will it rain tomorrow?", nil, false},
		{"How many rate cuts in 2026?", nil, false},
		{"Which of these teams makes the playoffs?", nil, false},
		{"Will any of these candidates drop out?", []string{"elections"}, false},
		{"At least 3 hurricanes this season?", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, LooksObviouslyExclusive(tc.title, tc.tags))
		})
	}
}
