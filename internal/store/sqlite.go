package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/room"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const createRoomTable = `
CREATE TABLE IF NOT EXISTS room_document (
	id         TEXT PRIMARY KEY,
	doc        BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLite 单机落盘后端，重启后房间还在
// 变更事件走进程内分发，只适合单实例部署
type SQLite struct {
	db  *sqlx.DB
	hub *hub

	closeOnce sync.Once
	done      chan struct{}
}

// NewSQLite 打开（必要时建表）数据库文件
// ttl 大于 0 时启动清理协程
func NewSQLite(dsn string, ttl time.Duration) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 失败: %w", err)
	}

	if _, err := db.Exec(createRoomTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化房间表失败: %w", err)
	}

	s := &SQLite{
		db:   db,
		hub:  newHub(),
		done: make(chan struct{}),
	}

	if ttl > 0 {
		go s.startCleanupLoop(ttl)
	}

	return s, nil
}

func (s *SQLite) startCleanupLoop(ttl time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case <-ticker.C:
			cutoff := time.Now().Add(-ttl).Unix()

			var expired []string

			err := s.db.Select(
				&expired,
				`SELECT id FROM room_document WHERE updated_at < ?`,
				cutoff,
			)
			if err != nil {
				zap.L().Warn("查询过期房间失败", zap.Error(err))
				continue
			}

			for _, roomID := range expired {
				zap.S().Infof("房间 %s 长时间无写入，开始清理", roomID)

				if err := s.Delete(context.Background(), roomID); err != nil {
					zap.L().Warn(
						"清理过期房间失败",
						zap.String("room_id", roomID),
						zap.Error(err),
					)
				}
			}
		}
	}
}

func (s *SQLite) Get(ctx context.Context, roomID string) (*room.Room, error) {
	var data []byte

	err := s.db.GetContext(
		ctx,
		&data,
		`SELECT doc FROM room_document WHERE id = ?`,
		roomID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("读取房间文档失败: %w", err)
	}

	var rm room.Room

	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, fmt.Errorf("解析房间文档失败: %w", err)
	}

	return &rm, nil
}

func (s *SQLite) Insert(ctx context.Context, rm *room.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("序列化房间文档失败: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO room_document (id, doc, updated_at) VALUES (?, ?, ?)`,
		rm.ID, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}
	if affected == 0 {
		return ErrRoomExists
	}

	s.hub.publish(rm.ID, Updated{Room: rm.Clone()})

	return nil
}

func (s *SQLite) Replace(ctx context.Context, roomID string, rm *room.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("序列化房间文档失败: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE room_document SET doc = ?, updated_at = ? WHERE id = ?`,
		data, time.Now().Unix(), roomID,
	)
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}

	s.hub.publish(roomID, Updated{Room: rm.Clone()})

	return nil
}

func (s *SQLite) Delete(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM room_document WHERE id = ?`,
		roomID,
	)
	if err != nil {
		return fmt.Errorf("删除房间文档失败: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("删除房间文档失败: %w", err)
	}

	if affected > 0 {
		s.hub.publish(roomID, Removed{RoomID: roomID})
	}

	return nil
}

func (s *SQLite) Subscribe(roomID string, onEvent func(Event)) *Subscription {
	return s.hub.subscribe(roomID, onEvent)
}

func (s *SQLite) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	return s.db.Close()
}
