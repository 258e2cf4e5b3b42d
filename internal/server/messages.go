package server

import (
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/service"
)

type ResolveAndPublishRequest struct {
	TargetDate string `json:"targetDate,omitempty"`
}

type GetActiveRoundRequest struct{}

type GetActiveRoundResponse struct {
	Active *service.ActiveRoundView `json:"active"`
}

type GetRoundRequest struct {
	Jornada       int    `json:"jornada"`
	CompetitionID string `json:"competitionId,omitempty"`
	ForceRefresh  bool   `json:"forceRefresh,omitempty"`
}

type CastVoteRequest struct {
	Jornada int    `json:"jornada"`
	UserID  string `json:"userId"`
	MatchID string `json:"matchId"`
}

type CastVoteResponse struct {
	Vote domain.Vote `json:"vote"`
}

type WithdrawVoteRequest struct {
	Jornada int    `json:"jornada"`
	UserID  string `json:"userId"`
}

type WithdrawVoteResponse struct {
	Removed bool `json:"removed"`
}

type GetTalliesRequest struct {
	Jornada int `json:"jornada"`
}

type GetTalliesResponse struct {
	Tallies []domain.Tally `json:"tallies"`
}

// GetWeeklyFocusRequest with Jornada 0 asks for the current focus.
type GetWeeklyFocusRequest struct {
	Jornada int `json:"jornada,omitempty"`
}

type WeeklyFocusResponse struct {
	Focus *domain.WeeklyFocus `json:"focus"`
}

type ProcessWinnerRequest struct {
	Jornada int `json:"jornada"`
}

type CloseSuggestionsRequest struct{}

type CloseSuggestionsResponse struct {
	Focus   *domain.WeeklyFocus `json:"focus"`
	Changed bool                `json:"changed"`
}

type SetupWeeklyFocusRequest struct {
	Jornada      int                   `json:"jornada"`
	MatchID      string                `json:"matchId,omitempty"`
	WinningMatch *domain.VotingMatch   `json:"winningMatch,omitempty"`
	TotalVotes   int                   `json:"totalVotes,omitempty"`
	Officials    *domain.OfficialsInfo `json:"refereeInfo,omitempty"`
}

type ListSyncRunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListSyncRunsResponse struct {
	Runs []domain.SyncRun `json:"runs"`
}
