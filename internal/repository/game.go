package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.im.mahjong/internal/game"
	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/model"
)

// GameRepository 牌局归档仓库
type GameRepository struct {
	db *pgxpool.Pool
}

// NewGameRepository 创建牌局归档仓库
func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// Create 写入归档记录, 同一牌局重复写入时忽略
func (r *GameRepository) Create(ctx context.Context, rec *model.GameRecord) (int64, error) {
	query := `
		INSERT INTO mahjong_games (game_id, preset, players, winner, winner_name, reason, result, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id) DO UPDATE SET game_id = EXCLUDED.game_id
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		rec.GameId,
		rec.Preset,
		rec.Players,
		rec.Winner,
		rec.WinnerName,
		rec.Reason,
		rec.Result,
		rec.CreatedAt,
		rec.FinishedAt,
	).Scan(&id)

	return id, err
}

// FindByGameID 根据牌局 ID 查找归档
func (r *GameRepository) FindByGameID(ctx context.Context, gameID string) (*model.GameRecord, error) {
	query := `
		SELECT id, game_id, preset, players, winner, winner_name, reason, result, created_at, finished_at
		FROM mahjong_games WHERE game_id = $1
	`

	var rec model.GameRecord
	err := r.db.QueryRow(ctx, query, gameID).Scan(
		&rec.Id,
		&rec.GameId,
		&rec.Preset,
		&rec.Players,
		&rec.Winner,
		&rec.WinnerName,
		&rec.Reason,
		&rec.Result,
		&rec.CreatedAt,
		&rec.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrGameNotFound.WithContext("gameId", gameID)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListRecent 最近结束的牌局
func (r *GameRepository) ListRecent(ctx context.Context, limit int) ([]*model.GameRecord, error) {
	query := `
		SELECT id, game_id, preset, players, winner, winner_name, reason, result, created_at, finished_at
		FROM mahjong_games
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.GameRecord
	for rows.Next() {
		var rec model.GameRecord
		if err := rows.Scan(
			&rec.Id,
			&rec.GameId,
			&rec.Preset,
			&rec.Players,
			&rec.Winner,
			&rec.WinnerName,
			&rec.Reason,
			&rec.Result,
			&rec.CreatedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Archive 实现 game.Archiver
func (r *GameRepository) Archive(ctx context.Context, record game.ArchiveRecord) error {
	rec, err := NewGameRecord(record)
	if err != nil {
		return err
	}
	_, err = r.Create(ctx, rec)
	return err
}

// NewGameRecord 把归档内容转换为数据库记录
func NewGameRecord(record game.ArchiveRecord) (*model.GameRecord, error) {
	result, err := json.Marshal(record.Result)
	if err != nil {
		return nil, err
	}
	return &model.GameRecord{
		GameId:     record.Result.GameID,
		Preset:     record.Preset,
		Players:    record.Players,
		Winner:     record.Result.Winner,
		WinnerName: record.Result.WinnerName,
		Reason:     string(record.Result.Reason),
		Result:     result,
		CreatedAt:  record.CreatedAt,
		FinishedAt: record.FinishedAt,
	}, nil
}
