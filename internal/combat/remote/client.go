package remote

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client asks a player served over gRPC. It implements player.Player.
type Client struct {
	conn grpc.ClientConnInterface
	// owner answers confirmations, which carry no player of their own.
	owner  *unit.Player
	Logger *log.Logger
}

var _ player.Player = (*Client)(nil)

// NewClient returns a client asking owner's questions over conn.
func NewClient(conn grpc.ClientConnInterface, owner *unit.Player) *Client {
	return &Client{conn: conn, owner: owner}
}

func (c *Client) invoke(ctx context.Context, method string, req, reply any) error {
	err := c.conn.Invoke(ctx, fullMethod(method), req, reply, grpc.CallContentSubtype(codecName))
	if err != nil {
		return fromStatus(method, err)
	}
	return nil
}

// fromStatus turns a gRPC error back into a domain error where the server
// sent a domain code.
func fromStatus(method string, err error) error {
	if domainErr, ok := apperrors.FromGRPCStatus(err); ok {
		return domainErr
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return apperrors.Wrap(apperrors.CodeRemoteTimeout, method+" timed out", err)
	case codes.Canceled:
		return fmt.Errorf("%s: %w", method, errors.Join(context.Canceled, err))
	}
	return fmt.Errorf("%s: %w", method, err)
}

// SelectCasualties implements casualty.Chooser.
func (c *Client) SelectCasualties(ctx context.Context, q casualty.Query) (casualty.Details, error) {
	values := make([]int, 0, q.Dice.Len())
	for _, d := range q.Dice.Dice() {
		values = append(values, d.Value)
	}
	req := &CasualtyRequest{
		BattleID:                 q.BattleID,
		Player:                   q.Player.String(),
		Territory:                viewTerritory(q.Territory),
		Targets:                  viewUnits(q.Targets),
		Hits:                     q.Hits,
		Message:                  q.Message,
		Dice:                     values,
		DefaultKilled:            ids(q.Default.Killed),
		DefaultDamaged:           ids(q.Default.Damaged),
		Amphibious:               q.Amphibious,
		AllowMultipleHitsPerUnit: q.AllowMultipleHitsPerUnit,
	}
	var reply CasualtyReply
	if err := c.invoke(ctx, methodSelectCasualties, req, &reply); err != nil {
		return casualty.Details{}, err
	}
	list, ok := casualtyList(q.Targets, reply.Killed, reply.Damaged)
	if !ok {
		return casualty.Details{}, apperrors.New(apperrors.CodeCasualtyNotEnoughUnits,
			fmt.Sprintf("%s chose units that are not targets", q.Player))
	}
	return casualty.Details{List: list, AutoCalculated: reply.AutoCalculated}, nil
}

// ReportError implements casualty.Chooser. Delivery failures are logged.
func (c *Client) ReportError(ctx context.Context, message string) {
	err := c.invoke(ctx, methodReportError, &ErrorReport{Player: c.owner.String(), Message: message}, &Empty{})
	if err != nil && c.Logger != nil {
		c.Logger.Printf("report error to %s: %v", c.owner, err)
	}
}

// RetreatQuery implements player.Player. A territory the query did not
// offer comes back as a bare territory so the battle can reject it.
func (c *Client) RetreatQuery(ctx context.Context, q player.RetreatQuery) (*unit.Territory, error) {
	req := &RetreatRequest{
		BattleID:  q.BattleID,
		Player:    q.Player.String(),
		Kind:      q.Kind.String(),
		Territory: viewTerritory(q.Territory),
		Possible:  viewTerritories(q.Possible),
		Submerge:  q.Submerge,
		Message:   q.Message,
	}
	var reply RetreatReply
	if err := c.invoke(ctx, methodRetreatQuery, req, &reply); err != nil {
		return nil, err
	}
	if reply.Territory == "" {
		return nil, nil
	}
	if q.Territory != nil && q.Territory.Name == reply.Territory {
		return q.Territory, nil
	}
	for _, t := range q.Possible {
		if t.Name == reply.Territory {
			return t, nil
		}
	}
	return &unit.Territory{Name: reply.Territory}, nil
}

// ConfirmOwnCasualties implements player.Player.
func (c *Client) ConfirmOwnCasualties(ctx context.Context, battleID string, message string) error {
	return c.invoke(ctx, methodConfirmOwnCasualties, &ConfirmRequest{
		BattleID: battleID,
		Player:   c.owner.String(),
		Message:  message,
	}, &Empty{})
}

// ConfirmEnemyCasualties implements player.Player.
func (c *Client) ConfirmEnemyCasualties(ctx context.Context, battleID string, message string, hitPlayer *unit.Player) error {
	return c.invoke(ctx, methodConfirmEnemyCasualties, &ConfirmRequest{
		BattleID:  battleID,
		Player:    c.owner.String(),
		Message:   message,
		HitPlayer: hitPlayer.String(),
	}, &Empty{})
}

// WhatShouldBomberBomb implements player.Player. An unknown target id comes
// back as a stand-in unit so the battle logs and ignores it.
func (c *Client) WhatShouldBomberBomb(ctx context.Context, territory *unit.Territory, targets []*unit.Unit, bombers []*unit.Unit) (*unit.Unit, error) {
	req := &BomberRequest{
		Player:    c.owner.String(),
		Territory: viewTerritory(territory),
		Targets:   viewUnits(targets),
		Bombers:   viewUnits(bombers),
	}
	var reply BomberReply
	if err := c.invoke(ctx, methodWhatShouldBomberBomb, req, &reply); err != nil {
		return nil, err
	}
	if reply.Target == "" {
		return nil, nil
	}
	for _, u := range targets {
		if u.ID == reply.Target {
			return u, nil
		}
	}
	return unit.New(reply.Target, &unit.Type{Name: "unknown", HitPoints: 1}, c.owner), nil
}

// SelectShoreBombard implements player.Player.
func (c *Client) SelectShoreBombard(ctx context.Context, q player.BombardQuery) (bool, error) {
	req := &BombardRequest{
		BattleID:  q.BattleID,
		Player:    c.owner.String(),
		Unit:      viewUnit(q.Unit),
		Territory: viewTerritory(q.Territory),
	}
	var reply BombardReply
	if err := c.invoke(ctx, methodSelectShoreBombard, req, &reply); err != nil {
		return false, err
	}
	return reply.Bombard, nil
}
