// internal/engine/ranking.go
package engine

import "sort"

// buildRanking lists the competing seats ordered by
// (points desc, pathLength desc, time desc). The wall host never ranks.
func buildRanking(room *Room) []RankEntry {
	var entries []RankEntry
	for i, s := range room.Players {
		if !s.Occupied || !s.Validated || s.Wall {
			continue
		}
		entries = append(entries, RankEntry{
			PlayerID:   i,
			Nickname:   s.Nickname,
			Points:     s.Match.Points,
			PathLength: s.Match.PathLength,
			Time:       s.Match.Time,
			Winner:     s.Match.Winner,
		})
	}
	sort.SliceStable(entries, func(a, b int) bool {
		ea, eb := entries[a], entries[b]
		if ea.Points != eb.Points {
			return ea.Points > eb.Points
		}
		if ea.PathLength != eb.PathLength {
			return ea.PathLength > eb.PathLength
		}
		return ea.Time > eb.Time
	})
	return entries
}

// resolveWinner ranks the room's competitors and, unless the top rank is a
// genuine tie, marks the winner, credits the time bonus to their match points
// and bumps their session win count. Every competitor's cumulative session
// points accumulate their match points regardless of outcome.
//
// Returns the final ranking, recomputed after the bonus was applied.
func resolveWinner(room *Room, bonus BonusFunc) []RankEntry {
	ranking := buildRanking(room)

	if len(ranking) > 0 {
		top := ranking[0]
		tied := len(ranking) > 1 &&
			ranking[1].Points == top.Points &&
			ranking[1].PathLength == top.PathLength &&
			ranking[1].Time == top.Time
		if !tied {
			w := room.Players[top.PlayerID]
			if bonus != nil {
				w.Match.Points += bonus(w.Match.Time, room.TimerSetting)
			}
			w.Match.Winner = true
			w.WonMatches++
		}
	}

	for _, s := range room.Players {
		if s.Occupied && s.Validated && !s.Wall {
			s.Points += s.Match.Points
		}
	}

	return buildRanking(room)
}
