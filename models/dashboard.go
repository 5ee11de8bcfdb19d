package models

type DashboardStats struct {
	TournamentsTotal     int `json:"tournaments_total"`
	OpenTournaments      int `json:"open_tournaments"`
	ActiveTournaments    int `json:"active_tournaments"`
	CompletedTournaments int `json:"completed_tournaments"`
	ApprovedParticipants int `json:"approved_participants"`
	MatchesPlayed        int `json:"matches_played"`
}
