package model

import (
	"sort"
	"time"
)

type LeaderboardEntry struct {
	Rank            int       `json:"rank"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PhotoURL        string    `json:"photoURL"`
	AssignmentTitle string    `json:"assignmentTitle"`
	Mark            float64   `json:"mark"`
	SubmissionID    string    `json:"submissionId"`
	EvaluatedAt     time.Time `json:"evaluatedAt"`
}

// LeaderboardRow is one completed submission as read from the store, with
// its joined display fields. Name and PhotoURL may be empty.
type LeaderboardRow struct {
	SubmissionID    string
	SubmitterEmail  string
	SubmitterName   string
	SubmitterPhoto  string
	AssignmentTitle string
	Mark            float64
	EvaluatedAt     time.Time
}

const UntitledAssignment = "Untitled Assignment"

// BuildLeaderboard orders rows by mark descending; equal marks go to the
// earliest evaluation, then the lowest submission id. Ranks follow standard
// competition ranking (1, 1, 3).
func BuildLeaderboard(rows []LeaderboardRow) []LeaderboardEntry {
	sorted := make([]LeaderboardRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Mark != b.Mark {
			return a.Mark > b.Mark
		}
		if !a.EvaluatedAt.Equal(b.EvaluatedAt) {
			return a.EvaluatedAt.Before(b.EvaluatedAt)
		}
		return a.SubmissionID < b.SubmissionID
	})

	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, row := range sorted {
		rank := i + 1
		if i > 0 && row.Mark == sorted[i-1].Mark {
			rank = entries[i-1].Rank
		}
		name := row.SubmitterName
		if name == "" {
			name = row.SubmitterEmail
		}
		photo := row.SubmitterPhoto
		if photo == "" {
			photo = AvatarURL(row.SubmitterEmail)
		}
		title := row.AssignmentTitle
		if title == "" {
			title = UntitledAssignment
		}
		entries = append(entries, LeaderboardEntry{
			Rank:            rank,
			Email:           row.SubmitterEmail,
			Name:            name,
			PhotoURL:        photo,
			AssignmentTitle: title,
			Mark:            row.Mark,
			SubmissionID:    row.SubmissionID,
			EvaluatedAt:     row.EvaluatedAt,
		})
	}
	return entries
}
