package service

import (
	"context"
	"strings"
)

// 信令內容對伺服器是不透明的，只轉送一次，目標不存在時靜默丟棄

func (s *WebSocketService) handleVideoOffer(_ context.Context, c *Client, p *VideoOfferPayload) error {
	return s.relay(p.To, EventVideoOffer, VideoOfferEvent{
		From:     c.ID(),
		Offer:    p.Offer,
		ChatName: c.ChatName(),
	})
}

func (s *WebSocketService) handleVideoAnswer(_ context.Context, c *Client, p *VideoAnswerPayload) error {
	return s.relay(p.To, EventVideoAnswer, VideoAnswerEvent{
		From:   c.ID(),
		Answer: p.Answer,
	})
}

func (s *WebSocketService) handleICECandidate(_ context.Context, c *Client, p *ICECandidatePayload) error {
	return s.relay(p.To, EventNewICECandidate, ICECandidateEvent{
		From:      c.ID(),
		Candidate: p.Candidate,
	})
}

func (s *WebSocketService) relay(to, event string, payload interface{}) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errMalformed
	}
	_, err := s.broadcaster.ToConnection(to, event, payload)
	return err
}

// handleRequestConnections 請房間內其他成員重新發起信令，給晚加入的人使用
func (s *WebSocketService) handleRequestConnections(_ context.Context, c *Client, p *RequestConnectionsPayload) error {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return errMalformed
	}
	return s.broadcaster.ToRoomExcept(roomID, c.ID(), EventRequestVideoConnections, ConnectionRequestEvent{
		From:     c.ID(),
		ChatName: c.ChatName(),
	})
}
