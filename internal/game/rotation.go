package game

import (
	"slices"
)

// SelectDrawer picks the next drawer among the active participants and advances
// the rotation cursor. It returns false when nobody is active.
//
// Flat rotation walks the participants sorted by user id. Team rotation walks the
// interleaved sequence A0,B0,A1,B1,... skipping anyone already in DrawnUserIDs and
// resets the drawn set once every member has drawn. Team mode with an empty side
// falls back to flat rotation.
func SelectDrawer(room *Room) (string, bool) {
	active := activeIDs(room)
	if len(active) == 0 {
		return "", false
	}
	if room.Mode == ModeTeam {
		teamA, teamB := teamIDs(room)
		if len(teamA) > 0 && len(teamB) > 0 {
			return selectTeamDrawer(room, interleave(teamA, teamB)), true
		}
	}
	return selectFlatDrawer(room, active), true
}

// rotationSequence is the order SelectDrawer walks for the current members.
func rotationSequence(room *Room) []string {
	if room.Mode == ModeTeam {
		teamA, teamB := teamIDs(room)
		if len(teamA) > 0 && len(teamB) > 0 {
			return interleave(teamA, teamB)
		}
	}
	return activeIDs(room)
}

// RebaseDrawerPointer moves the cursor after membership changed so that the
// member who was next in before is still next, or the first one after them
// that remains. before is rotationSequence taken prior to the change.
func RebaseDrawerPointer(room *Room, before []string) {
	after := rotationSequence(room)
	if len(before) == 0 || len(after) == 0 {
		room.DrawerPointer = 0
		return
	}
	start := wrap(room.DrawerPointer, len(before))
	for offset := 0; offset < len(before); offset++ {
		if index := slices.Index(after, before[(start+offset)%len(before)]); index >= 0 {
			room.DrawerPointer = index
			return
		}
	}
	room.DrawerPointer = wrap(room.DrawerPointer, len(after))
}

func selectFlatDrawer(room *Room, sequence []string) string {
	index := wrap(room.DrawerPointer, len(sequence))
	drawer := sequence[index]
	// a repeat pick starts a new cycle
	if p, ok := room.Participant(drawer); ok && p.HasDrawn {
		for i := range room.Participants {
			room.Participants[i].HasDrawn = false
		}
	}
	room.DrawerPointer = (index + 1) % len(sequence)
	markDrawn(room, drawer)
	return drawer
}

func selectTeamDrawer(room *Room, sequence []string) string {
	start := wrap(room.DrawerPointer, len(sequence))
	pick := -1
	for offset := 0; offset < len(sequence); offset++ {
		index := (start + offset) % len(sequence)
		if !slices.Contains(room.DrawnUserIDs, sequence[index]) {
			pick = index
			break
		}
	}
	if pick < 0 {
		room.DrawnUserIDs = nil
		for i := range room.Participants {
			room.Participants[i].HasDrawn = false
		}
		pick = start
	}
	drawer := sequence[pick]
	if !slices.Contains(room.DrawnUserIDs, drawer) {
		room.DrawnUserIDs = append(room.DrawnUserIDs, drawer)
	}
	room.DrawerPointer = (pick + 1) % len(sequence)
	markDrawn(room, drawer)
	return drawer
}

func markDrawn(room *Room, userID string) {
	if p, ok := room.Participant(userID); ok {
		p.HasDrawn = true
	}
}

func activeIDs(room *Room) []string {
	ids := make([]string, 0, len(room.Participants))
	for _, p := range room.Participants {
		if p.IsActive {
			ids = append(ids, p.UserID)
		}
	}
	slices.Sort(ids)
	return ids
}

func teamIDs(room *Room) (teamA, teamB []string) {
	for _, p := range room.Participants {
		if !p.IsActive {
			continue
		}
		switch p.Team {
		case TeamA:
			teamA = append(teamA, p.UserID)
		case TeamB:
			teamB = append(teamB, p.UserID)
		}
	}
	slices.Sort(teamA)
	slices.Sort(teamB)
	return teamA, teamB
}

// interleave alternates a and b, continuing with the longer side once the
// shorter one runs out.
func interleave(a, b []string) []string {
	sequence := make([]string, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			sequence = append(sequence, a[i])
		}
		if i < len(b) {
			sequence = append(sequence, b[i])
		}
	}
	return sequence
}

func wrap(pointer, n int) int {
	if n <= 0 {
		return 0
	}
	pointer %= n
	if pointer < 0 {
		pointer += n
	}
	return pointer
}

// UnderRepresentedTeam returns the team a new member should join. Team A wins
// exact ties.
func UnderRepresentedTeam(room *Room) Team {
	countA, countB := 0, 0
	for _, p := range room.Participants {
		if !p.IsActive {
			continue
		}
		switch p.Team {
		case TeamA:
			countA++
		case TeamB:
			countB++
		}
	}
	if countA <= countB {
		return TeamA
	}
	return TeamB
}

func assignMissingTeams(room *Room) {
	for i := range room.Participants {
		p := &room.Participants[i]
		if !p.IsActive || p.Team != TeamNone {
			continue
		}
		p.Team = UnderRepresentedTeam(room)
	}
}

func clearTeams(room *Room) {
	for i := range room.Participants {
		room.Participants[i].Team = TeamNone
	}
}
