package remote

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/roll"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	errori18n "github.com/triplea-game/triplea-sub001/internal/platform/errors/i18n"
	platformgrpc "github.com/triplea-game/triplea-sub001/internal/platform/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/status"
)

// Server answers battle questions for one player.
type Server struct {
	// Name is the player this server answers for. Questions for anyone
	// else are refused.
	Name   string
	Player player.Player
	Locale string
	Logger *log.Logger
}

func (s *Server) serveRemotePlayer() {}

// Register adds the player service and a health service to gs.
func (s *Server) Register(gs *grpc.Server) *health.Server {
	gs.RegisterService(&serviceDesc, s)
	return platformgrpc.RegisterHealth(gs, ServiceName)
}

// NewGRPCServer returns a gRPC server answering for the named player.
func NewGRPCServer(name string, p player.Player, logger *log.Logger, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(platformgrpc.ServerOptions(opts...)...)
	(&Server{Name: name, Player: p, Logger: logger}).Register(gs)
	return gs
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Server) authorize(name string) error {
	if name == s.Name {
		return nil
	}
	s.logf("refused question for %q", name)
	return s.status(apperrors.WithMetadata(apperrors.CodeRemoteForbidden,
		fmt.Sprintf("server answers for %s, not %s", s.Name, name),
		map[string]string{"Player": name}))
}

// status converts err into a gRPC status carrying the domain code.
func (s *Server) status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		message := errori18n.GetCatalog(s.Locale).Format(string(domainErr.Code), domainErr.Metadata)
		return domainErr.ToGRPCStatus(s.Locale, message)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) selectCasualties(ctx context.Context, req *CasualtyRequest) (*CasualtyReply, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	p := newPieces()
	targets := p.units(req.Targets)
	defaults, ok := casualtyList(targets, req.DefaultKilled, req.DefaultDamaged)
	if !ok {
		return nil, s.status(apperrors.New(apperrors.CodeCasualtyTargetsUnknown, "default casualties must be among the targets"))
	}
	dice := make([]roll.Die, len(req.Dice))
	for i, v := range req.Dice {
		dice[i] = roll.Die{Value: v}
	}
	details, err := s.Player.SelectCasualties(ctx, casualty.Query{
		BattleID:                 req.BattleID,
		Player:                   p.player(req.Player),
		Territory:                territory(req.Territory),
		Targets:                  targets,
		Friendly:                 targets,
		Hits:                     req.Hits,
		Message:                  req.Message,
		Dice:                     roll.NewDiceRoll(dice, req.Hits, float64(req.Hits), req.Player),
		Default:                  defaults,
		Amphibious:               req.Amphibious,
		AllowMultipleHitsPerUnit: req.AllowMultipleHitsPerUnit,
	})
	if err != nil {
		return nil, s.status(err)
	}
	return &CasualtyReply{
		Killed:         ids(details.Killed),
		Damaged:        ids(details.Damaged),
		AutoCalculated: details.AutoCalculated,
	}, nil
}

func (s *Server) reportError(ctx context.Context, req *ErrorReport) (*Empty, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	s.Player.ReportError(ctx, req.Message)
	return &Empty{}, nil
}

func (s *Server) retreatQuery(ctx context.Context, req *RetreatRequest) (*RetreatReply, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	kind, ok := retreatKinds[req.Kind]
	if !ok {
		return nil, s.status(apperrors.WithMetadata(apperrors.CodeRetreatInvalid,
			fmt.Sprintf("unknown retreat kind %q", req.Kind), map[string]string{"Kind": req.Kind}))
	}
	possible := make([]*unit.Territory, len(req.Possible))
	for i, t := range req.Possible {
		possible[i] = territory(t)
	}
	choice, err := s.Player.RetreatQuery(ctx, player.RetreatQuery{
		BattleID:  req.BattleID,
		Player:    &unit.Player{Name: req.Player},
		Kind:      kind,
		Territory: territory(req.Territory),
		Possible:  possible,
		Submerge:  req.Submerge,
		Message:   req.Message,
	})
	if err != nil {
		return nil, s.status(err)
	}
	if choice == nil {
		return &RetreatReply{}, nil
	}
	return &RetreatReply{Territory: choice.Name}, nil
}

func (s *Server) confirmOwnCasualties(ctx context.Context, req *ConfirmRequest) (*Empty, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	if err := s.Player.ConfirmOwnCasualties(ctx, req.BattleID, req.Message); err != nil {
		return nil, s.status(err)
	}
	return &Empty{}, nil
}

func (s *Server) confirmEnemyCasualties(ctx context.Context, req *ConfirmRequest) (*Empty, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	if err := s.Player.ConfirmEnemyCasualties(ctx, req.BattleID, req.Message, &unit.Player{Name: req.HitPlayer}); err != nil {
		return nil, s.status(err)
	}
	return &Empty{}, nil
}

func (s *Server) whatShouldBomberBomb(ctx context.Context, req *BomberRequest) (*BomberReply, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	p := newPieces()
	target, err := s.Player.WhatShouldBomberBomb(ctx, territory(req.Territory), p.units(req.Targets), p.units(req.Bombers))
	if err != nil {
		return nil, s.status(err)
	}
	if target == nil {
		return &BomberReply{}, nil
	}
	return &BomberReply{Target: target.ID}, nil
}

func (s *Server) selectShoreBombard(ctx context.Context, req *BombardRequest) (*BombardReply, error) {
	if err := s.authorize(req.Player); err != nil {
		return nil, err
	}
	ok, err := s.Player.SelectShoreBombard(ctx, player.BombardQuery{
		BattleID:  req.BattleID,
		Unit:      newPieces().unit(req.Unit),
		Territory: territory(req.Territory),
	})
	if err != nil {
		return nil, s.status(err)
	}
	return &BombardReply{Bombard: ok}, nil
}
