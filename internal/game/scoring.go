package game

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	rewardDivisor       = 8
	drawerRewardPerHit  = 2
	closeGuessDistance  = 2
	closeGuessMinLength = 4
)

var payoutMultipliers = []int{3, 2, 1}

// GuessReward is ceil(remainingSeconds/8) capped at maxPoints.
func GuessReward(remainingSeconds, maxPoints int) int {
	if remainingSeconds <= 0 {
		return 0
	}
	reward := (remainingSeconds + rewardDivisor - 1) / rewardDivisor
	return min(reward, maxPoints)
}

// CompressTime shortens the drawing countdown after a correct guess by
// remaining/eligible seconds.
func CompressTime(remainingSeconds, eligibleCount int) int {
	if eligibleCount <= 0 {
		return max(0, remainingSeconds)
	}
	reduction := remainingSeconds / eligibleCount
	return max(0, remainingSeconds-reduction)
}

// DrawerReward is two points per correct guesser capped at maxPoints.
func DrawerReward(guessedCount, maxPoints int) int {
	if guessedCount <= 0 {
		return 0
	}
	return min(guessedCount*drawerRewardPerHit, maxPoints)
}

func normalizeGuess(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// MatchesWord compares a guess against the secret word ignoring case and
// surrounding whitespace.
func MatchesWord(guess, word string) bool {
	normalized := normalizeGuess(word)
	return normalized != "" && normalizeGuess(guess) == normalized
}

// IsCloseGuess reports a near miss worth hinting to the guesser privately.
func IsCloseGuess(guess, word string) bool {
	g, w := normalizeGuess(guess), normalizeGuess(word)
	if g == "" || g == w || utf8.RuneCountInString(w) < closeGuessMinLength {
		return false
	}
	return levenshtein.ComputeDistance(g, w) <= closeGuessDistance
}

// EligibleGuessers are the active non-drawer participants allowed to guess;
// in team mode only the drawer's teammates.
func EligibleGuessers(room *Room) []*Participant {
	drawerTeam := TeamNone
	if drawer, ok := room.Drawer(); ok {
		drawerTeam = drawer.Team
	}
	eligible := make([]*Participant, 0, len(room.Participants))
	for i := range room.Participants {
		p := &room.Participants[i]
		if !p.IsActive || p.UserID == room.CurrentDrawerID {
			continue
		}
		if room.Mode == ModeTeam && p.Team != drawerTeam {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// GuessedCount counts everyone flagged as having guessed this round.
func GuessedCount(room *Room) int {
	count := 0
	for _, p := range room.Participants {
		if p.HasGuessedThisRound {
			count++
		}
	}
	return count
}

// RoundComplete reports whether every eligible guesser has guessed.
func RoundComplete(room *Room) bool {
	eligible := EligibleGuessers(room)
	guessed := 0
	for _, p := range eligible {
		if p.HasGuessedThisRound {
			guessed++
		}
	}
	return guessed >= len(eligible)
}

// AwardGuess credits reward to the guesser, or to every active member of the
// guesser's team in team mode. It returns the credited user ids.
func AwardGuess(room *Room, guesser *Participant, reward int) []string {
	if reward <= 0 {
		return nil
	}
	if room.Mode != ModeTeam || guesser.Team == TeamNone {
		guesser.Score += reward
		return []string{guesser.UserID}
	}
	credited := make([]string, 0)
	for i := range room.Participants {
		p := &room.Participants[i]
		if p.IsActive && p.Team == guesser.Team {
			p.Score += reward
			credited = append(credited, p.UserID)
		}
	}
	return credited
}

// rankedParticipants orders active participants by descending score; ties keep
// join order, then user id.
func rankedParticipants(room *Room) []Participant {
	ranked := make([]Participant, 0, len(room.Participants))
	for _, p := range room.Participants {
		if p.IsActive {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].JoinedAt.Equal(ranked[j].JoinedAt) {
			return ranked[i].JoinedAt.Before(ranked[j].JoinedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}

// DetectWinner returns the highest-ranked participant whose score reached the
// target. Callers run it exactly once per round end.
func DetectWinner(room *Room) (Participant, bool) {
	if room.TargetPoints <= 0 {
		return Participant{}, false
	}
	for _, p := range rankedParticipants(room) {
		if p.Score >= room.TargetPoints {
			return p, true
		}
	}
	return Participant{}, false
}

type Ranking struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Team        Team   `json:"team,omitempty"`
	Score       int    `json:"score"`
	Payout      int    `json:"payout"`
	Reason      string `json:"-"`
}

// Rankings ranks active participants and attaches the payout per place:
// 3x, 2x and 1x the entry cost for the top three, nothing for the rest.
func Rankings(room *Room) []Ranking {
	ranked := rankedParticipants(room)
	rankings := make([]Ranking, 0, len(ranked))
	for i, p := range ranked {
		entry := Ranking{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Team:        p.Team,
			Score:       p.Score,
		}
		entry.Payout = Payout(entry.Rank, room.EntryPoints)
		if entry.Payout > 0 {
			entry.Reason = payoutReason(entry.Rank)
		}
		rankings = append(rankings, entry)
	}
	return rankings
}

func Payout(rank, entryCost int) int {
	if rank < 1 || rank > len(payoutMultipliers) || entryCost <= 0 {
		return 0
	}
	return entryCost * payoutMultipliers[rank-1]
}

func payoutReason(rank int) string {
	return fmt.Sprintf("rank_%d_payout", rank)
}
