package repository

import "database/sql"

// Store bundles the repositories of one backend. Services depend on the
// interfaces only, so any of the constructors below can back them.
type Store struct {
	Users       UserRepository
	Assignments AssignmentRepository
	Submissions SubmissionRepository
	Leaderboard LeaderboardRepository
}

func NewPgStore(db *sql.DB) *Store {
	return &Store{
		Users:       NewPgUserRepository(db),
		Assignments: NewPgAssignmentRepository(db),
		Submissions: NewPgSubmissionRepository(db),
		Leaderboard: NewPgLeaderboardRepository(db),
	}
}
