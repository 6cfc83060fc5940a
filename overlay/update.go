package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nextup/arena-director/models"
)

// placeholderPlayer подставляется вместо нерезолвленного участника слота.
const placeholderPlayer = "TBD"

type textField struct {
	source string
	text   string
}

func resolvePlayer(slot models.Slot, players []models.Player) *models.Player {
	if slot.PlayerID == nil {
		return nil
	}
	for i := range players {
		if players[i].ID == *slot.PlayerID {
			return &players[i]
		}
	}
	return nil
}

func playerFields(prefix string, player *models.Player) []textField {
	name, tag, seed := placeholderPlayer, "", ""
	if player != nil {
		name = player.Name
		if player.Tag != nil {
			tag = *player.Tag
		}
		if player.Seed != nil {
			seed = fmt.Sprintf("%d", *player.Seed)
		}
	}
	return []textField{
		{prefix + "Name", name},
		{prefix + "Tag", tag},
		{prefix + "Seed", seed},
	}
}

func matchFields(game models.Game, players []models.Player) []textField {
	bracketName := models.BracketName(game.Bracket)
	fields := []textField{
		{"MatchName", fmt.Sprintf("%s Round %d", bracketName, game.Round)},
		{"BracketName", bracketName},
		{"RoundNumber", fmt.Sprintf("Round %d", game.Round)},
		{"ScoreToWin", fmt.Sprintf("First to %d", game.ScoreToWin())},
	}
	fields = append(fields, playerFields("Player1", resolvePlayer(game.Slots[0], players))...)
	fields = append(fields, playerFields("Player2", resolvePlayer(game.Slots[1], players))...)
	return fields
}

/// UpdateMatch выталкивает данные матча в оверлей: текстовые поля обновляются
// конкурентно, сбой одного поля логируется и не прерывает остальные
// (частичное обновление допустимо). Затем переключается сцена арены; её
// ошибка отдаётся вызывающему. Без живого соединения — ErrNotConnected,
// никаких частичных записей.
func (s *Supervisor) UpdateMatch(ctx context.Context, game models.Game, players []models.Player, arenaName string) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	var g errgroup.Group
	for _, field := range matchFields(game, players) {
		field := field
		g.Go(func() error {
			err := s.setTextSource(ctx, conn, field.source, field.text)
			if err != nil {
				s.logger.Warn("failed to update overlay field",
					slog.String("source", field.source),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.switchScene(ctx, conn, arenaName); err != nil {
		s.metrics.OverlayUpdates.WithLabelValues("fail").Inc()
		return err
	}

	s.metrics.OverlayUpdates.WithLabelValues("success").Inc()
	return nil
}

func (s *Supervisor) setTextSource(ctx context.Context, conn *liveConn, source, text string) error {
	_, err := conn.call(ctx, "SetInputSettings", map[string]interface{}{
		"inputName":     source,
		"inputSettings": map[string]string{"text": text},
	})
	return err
}

func (s *Supervisor) switchScene(ctx context.Context, conn *liveConn, sceneName string) error {
	_, err := conn.call(ctx, "SetCurrentProgramScene", map[string]string{
		"sceneName": sceneName,
	})
	return err
}
