package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/service"
	"github.com/rs/zerolog"
)

const VotingServicePath = "/visionat.v1.VotingService/"

const (
	ResolveAndPublishProcedure = VotingServicePath + "ResolveAndPublish"
	GetActiveRoundProcedure    = VotingServicePath + "GetActiveRound"
	GetRoundProcedure          = VotingServicePath + "GetRound"
	CastVoteProcedure          = VotingServicePath + "CastVote"
	WithdrawVoteProcedure      = VotingServicePath + "WithdrawVote"
	GetTalliesProcedure        = VotingServicePath + "GetTallies"
	GetWeeklyFocusProcedure    = VotingServicePath + "GetWeeklyFocus"
	ProcessWinnerProcedure     = VotingServicePath + "ProcessWinner"
	CloseSuggestionsProcedure  = VotingServicePath + "CloseSuggestions"
	SetupWeeklyFocusProcedure  = VotingServicePath + "SetupWeeklyFocus"
	ListSyncRunsProcedure      = VotingServicePath + "ListSyncRuns"
)

type VotingServer struct {
	syncSvc     *service.SyncService
	voteSvc     *service.VoteService
	scheduleSvc *service.ScheduleService
	winner      *service.WinnerResolver
	closer      *service.SuggestionCloser
	logger      zerolog.Logger
}

func NewVotingServer(syncSvc *service.SyncService, voteSvc *service.VoteService, scheduleSvc *service.ScheduleService, winner *service.WinnerResolver, closer *service.SuggestionCloser, logger zerolog.Logger) *VotingServer {
	return &VotingServer{
		syncSvc:     syncSvc,
		voteSvc:     voteSvc,
		scheduleSvc: scheduleSvc,
		winner:      winner,
		closer:      closer,
		logger:      logger,
	}
}

// Handler returns the mount path and the handler serving every procedure.
func (s *VotingServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ResolveAndPublishProcedure, connect.NewUnaryHandler(ResolveAndPublishProcedure, s.ResolveAndPublish, opts...))
	mux.Handle(GetActiveRoundProcedure, connect.NewUnaryHandler(GetActiveRoundProcedure, s.GetActiveRound, opts...))
	mux.Handle(GetRoundProcedure, connect.NewUnaryHandler(GetRoundProcedure, s.GetRound, opts...))
	mux.Handle(CastVoteProcedure, connect.NewUnaryHandler(CastVoteProcedure, s.CastVote, opts...))
	mux.Handle(WithdrawVoteProcedure, connect.NewUnaryHandler(WithdrawVoteProcedure, s.WithdrawVote, opts...))
	mux.Handle(GetTalliesProcedure, connect.NewUnaryHandler(GetTalliesProcedure, s.GetTallies, opts...))
	mux.Handle(GetWeeklyFocusProcedure, connect.NewUnaryHandler(GetWeeklyFocusProcedure, s.GetWeeklyFocus, opts...))
	mux.Handle(ProcessWinnerProcedure, connect.NewUnaryHandler(ProcessWinnerProcedure, s.ProcessWinner, opts...))
	mux.Handle(CloseSuggestionsProcedure, connect.NewUnaryHandler(CloseSuggestionsProcedure, s.CloseSuggestions, opts...))
	mux.Handle(SetupWeeklyFocusProcedure, connect.NewUnaryHandler(SetupWeeklyFocusProcedure, s.SetupWeeklyFocus, opts...))
	mux.Handle(ListSyncRunsProcedure, connect.NewUnaryHandler(ListSyncRunsProcedure, s.ListSyncRuns, opts...))
	return VotingServicePath, mux
}

func (s *VotingServer) ResolveAndPublish(ctx context.Context, req *connect.Request[ResolveAndPublishRequest]) (*connect.Response[service.SyncResult], error) {
	result, err := s.syncSvc.ResolveAndPublish(ctx, domain.TriggerManual, req.Msg.TargetDate)
	if err != nil {
		return nil, toConnectError(ctx, ResolveAndPublishProcedure, err)
	}
	return connect.NewResponse(result), nil
}

func (s *VotingServer) GetActiveRound(ctx context.Context, req *connect.Request[GetActiveRoundRequest]) (*connect.Response[GetActiveRoundResponse], error) {
	view, err := s.syncSvc.GetActiveRound(ctx)
	if err != nil {
		return nil, toConnectError(ctx, GetActiveRoundProcedure, err)
	}
	return connect.NewResponse(&GetActiveRoundResponse{Active: view}), nil
}

func (s *VotingServer) GetRound(ctx context.Context, req *connect.Request[GetRoundRequest]) (*connect.Response[service.RoundView], error) {
	view, err := s.scheduleSvc.GetRound(ctx, req.Msg.CompetitionID, req.Msg.Jornada, req.Msg.ForceRefresh)
	if err != nil {
		return nil, toConnectError(ctx, GetRoundProcedure, err)
	}
	return connect.NewResponse(view), nil
}

func (s *VotingServer) CastVote(ctx context.Context, req *connect.Request[CastVoteRequest]) (*connect.Response[CastVoteResponse], error) {
	vote, err := s.voteSvc.CastVote(ctx, req.Msg.Jornada, req.Msg.UserID, req.Msg.MatchID)
	if err != nil {
		return nil, toConnectError(ctx, CastVoteProcedure, err)
	}
	return connect.NewResponse(&CastVoteResponse{Vote: *vote}), nil
}

func (s *VotingServer) WithdrawVote(ctx context.Context, req *connect.Request[WithdrawVoteRequest]) (*connect.Response[WithdrawVoteResponse], error) {
	removed, err := s.voteSvc.WithdrawVote(ctx, req.Msg.Jornada, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(ctx, WithdrawVoteProcedure, err)
	}
	return connect.NewResponse(&WithdrawVoteResponse{Removed: removed}), nil
}

func (s *VotingServer) GetTallies(ctx context.Context, req *connect.Request[GetTalliesRequest]) (*connect.Response[GetTalliesResponse], error) {
	tallies, err := s.voteSvc.GetTallies(ctx, req.Msg.Jornada)
	if err != nil {
		return nil, toConnectError(ctx, GetTalliesProcedure, err)
	}
	return connect.NewResponse(&GetTalliesResponse{Tallies: tallies}), nil
}

func (s *VotingServer) GetWeeklyFocus(ctx context.Context, req *connect.Request[GetWeeklyFocusRequest]) (*connect.Response[WeeklyFocusResponse], error) {
	focus, err := s.winner.Focus(ctx, req.Msg.Jornada)
	if err != nil {
		return nil, toConnectError(ctx, GetWeeklyFocusProcedure, err)
	}
	return connect.NewResponse(&WeeklyFocusResponse{Focus: focus}), nil
}

// ProcessWinner elects the winner even if the focus already refers to the round.
func (s *VotingServer) ProcessWinner(ctx context.Context, req *connect.Request[ProcessWinnerRequest]) (*connect.Response[WeeklyFocusResponse], error) {
	if req.Msg.Jornada < 1 {
		return nil, toConnectError(ctx, ProcessWinnerProcedure, domain.ErrInvalidArgument)
	}
	focus, err := s.winner.Process(ctx, req.Msg.Jornada)
	if err != nil {
		return nil, toConnectError(ctx, ProcessWinnerProcedure, err)
	}
	return connect.NewResponse(&WeeklyFocusResponse{Focus: focus}), nil
}

func (s *VotingServer) CloseSuggestions(ctx context.Context, req *connect.Request[CloseSuggestionsRequest]) (*connect.Response[CloseSuggestionsResponse], error) {
	focus, changed, err := s.closer.Close(ctx)
	if err != nil {
		return nil, toConnectError(ctx, CloseSuggestionsProcedure, err)
	}
	return connect.NewResponse(&CloseSuggestionsResponse{Focus: focus, Changed: changed}), nil
}

func (s *VotingServer) SetupWeeklyFocus(ctx context.Context, req *connect.Request[SetupWeeklyFocusRequest]) (*connect.Response[WeeklyFocusResponse], error) {
	focus, err := s.winner.Setup(ctx, service.FocusSetup{
		Round:        req.Msg.Jornada,
		MatchID:      req.Msg.MatchID,
		WinningMatch: req.Msg.WinningMatch,
		TotalVotes:   req.Msg.TotalVotes,
		Officials:    req.Msg.Officials,
	})
	if err != nil {
		return nil, toConnectError(ctx, SetupWeeklyFocusProcedure, err)
	}
	return connect.NewResponse(&WeeklyFocusResponse{Focus: focus}), nil
}

func (s *VotingServer) ListSyncRuns(ctx context.Context, req *connect.Request[ListSyncRunsRequest]) (*connect.Response[ListSyncRunsResponse], error) {
	runs, err := s.syncSvc.ListSyncRuns(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, ListSyncRunsProcedure, err)
	}
	return connect.NewResponse(&ListSyncRunsResponse{Runs: runs}), nil
}
