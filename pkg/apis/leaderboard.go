/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apis

import (
	"fmt"
	"time"
)

// LeaderboardPartition is the single partition all leaderboard rows live in.
const LeaderboardPartition = "leaderboard"

// Leaderboard is the periodically published snapshot of ordered team ids, one
// row per competition phase.
type Leaderboard struct {
	Phase       int      `json:"phase"`
	Teams       []string `json:"teams"`
	LastUpdated string   `json:"last_updated"`
}

// NewLeaderboard snapshots an ordered team id list for the given phase.
func NewLeaderboard(phase int, teams []string, now time.Time) *Leaderboard {
	return &Leaderboard{Phase: phase, Teams: teams, LastUpdated: Timestamp(now)}
}

func (l *Leaderboard) PartitionKey() string { return LeaderboardPartition }
func (l *Leaderboard) RowKey() string       { return LeaderboardRowKey(l.Phase) }

// LeaderboardRowKey returns the row key of the authoritative leaderboard for
// a phase.
func LeaderboardRowKey(phase int) string {
	return fmt.Sprintf("leaderboard_phase%d", phase)
}

// LeaderboardView is the API projection of a leaderboard snapshot.
type LeaderboardView struct {
	Teams       []string `json:"teams"`
	LastUpdated string   `json:"last_updated"`
}

func (l *Leaderboard) View() LeaderboardView {
	return LeaderboardView{Teams: l.Teams, LastUpdated: l.LastUpdated}
}
