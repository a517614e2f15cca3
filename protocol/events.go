package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// RoundResult is the typed view of RES_ROUND_RESULT.
// Scores are only present on servers that report the running tally.
type RoundResult struct {
	Winner   int
	P1Move   string
	P2Move   string
	HasScore bool
	P1Wins   int
	P2Wins   int
}

// ParseRoundResult extracts winner, both moves and the optional score.
func ParseRoundResult(m Message) (RoundResult, error) {
	if len(m.Params) < 3 {
		return RoundResult{}, fmt.Errorf("%s: want at least 3 params, got %d", m.Type, len(m.Params))
	}
	winner, err := atoi(m.Params[0])
	if err != nil {
		return RoundResult{}, fmt.Errorf("%s winner: %w", m.Type, err)
	}
	rr := RoundResult{
		Winner: winner,
		P1Move: strings.TrimSpace(m.Params[1]),
		P2Move: strings.TrimSpace(m.Params[2]),
	}
	if len(m.Params) >= 5 {
		p1, err1 := atoi(m.Params[3])
		p2, err2 := atoi(m.Params[4])
		if err1 == nil && err2 == nil {
			rr.HasScore = true
			rr.P1Wins, rr.P2Wins = p1, p2
		}
	}
	return rr, nil
}

// MatchResult is the typed view of RES_MATCH_RESULT.
type MatchResult struct {
	Winner int
	P1Wins int
	P2Wins int
}

// ParseMatchResult extracts the match winner and the final score.
func ParseMatchResult(m Message) (MatchResult, error) {
	if len(m.Params) < 3 {
		return MatchResult{}, fmt.Errorf("%s: want 3 params, got %d", m.Type, len(m.Params))
	}
	var (
		out  MatchResult
		errs [3]error
	)
	out.Winner, errs[0] = atoi(m.Params[0])
	out.P1Wins, errs[1] = atoi(m.Params[1])
	out.P2Wins, errs[2] = atoi(m.Params[2])
	for _, err := range errs {
		if err != nil {
			return MatchResult{}, fmt.Errorf("%s: %w", m.Type, err)
		}
	}
	return out, nil
}

// ParseState splits a RES_STATE payload of the form
// "key=value;key=value" into a map.  Pairs without '=' are skipped and
// later keys overwrite earlier ones.
func ParseState(m Message) map[string]string {
	out := make(map[string]string)
	for _, p := range m.Params {
		for _, pair := range strings.Split(p, ";") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
