package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"go.uber.org/zap"
)

const (
	insertRoomQuery = `
INSERT INTO rooms (slug, name, webhook_url, created_by)
VALUES ($1, $2, $3, $4)
RETURNING slug, name, webhook_url, created_by, created_at;`

	insertRoomMemberQuery = `
INSERT INTO room_members (room_slug, email, google_chat_user_id)
VALUES ($1, $2, $3);`

	deleteRoomMembersQuery = `
DELETE FROM room_members
WHERE room_slug = $1;`

	selectRoomQuery = `
SELECT slug, name, webhook_url, created_by, created_at FROM rooms
WHERE slug = $1;`

	selectRoomForUpdateQuery = `
SELECT slug, name, webhook_url, created_by, created_at FROM rooms
WHERE slug = $1
FOR UPDATE;`

	updateRoomQuery = `
UPDATE rooms
SET name = COALESCE($2, name),
    webhook_url = COALESCE($3, webhook_url)
WHERE slug = $1
RETURNING slug, name, webhook_url, created_by, created_at;`

	selectRoomMembersQuery = `
SELECT room_slug, email, google_chat_user_id FROM room_members
WHERE room_slug = ANY($1)
ORDER BY room_slug, email;`

	selectRoomsForUserQuery = `
SELECT r.slug, r.name, r.webhook_url, r.created_by, r.created_at
FROM rooms r
JOIN room_members rm ON rm.room_slug = r.slug
WHERE rm.email = $1
ORDER BY r.created_at DESC;`
)

type RoomRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log *zap.Logger) *RoomRepository {
	return &RoomRepository{
		db:  db,
		log: log,
	}
}

func (r *RoomRepository) Create(ctx context.Context, d *dto.CreateRoomDTO) (*domain.Room, error) {
	r.log.Info("create room started",
		zap.String("slug", d.Slug),
		zap.String("created_by", d.CreatedBy),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer tx.Rollback(ctx)

	room, err := scanRoom(tx.QueryRow(ctx, insertRoomQuery, d.Slug, d.Name, d.WebhookURL, d.CreatedBy))
	if err != nil {
		r.log.Error("failed to insert room", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}

	// Создатель всегда входит в allowedUsers
	room.AllowedUsers = domain.EnsureCreator(d.AllowedUsers, room.CreatedBy)
	if err := insertMembers(ctx, tx, room.Slug, room.AllowedUsers); err != nil {
		r.log.Error("failed to insert room members", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("failed to commit room creation", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}

	r.log.Info("room created",
		zap.String("slug", room.Slug),
		zap.Int("allowed_users", len(room.AllowedUsers)),
	)
	return room, nil
}

func (r *RoomRepository) Get(ctx context.Context, d *dto.GetRoomDTO) (*domain.Room, error) {
	room, err := scanRoom(r.db.QueryRow(ctx, selectRoomQuery, d.Slug))
	if err != nil {
		return nil, handleDBError(err)
	}

	members, err := readMembers(ctx, r.db, []string{room.Slug})
	if err != nil {
		r.log.Error("failed to read room members", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}
	room.AllowedUsers = members[room.Slug]

	return room, nil
}

func (r *RoomRepository) Update(ctx context.Context, d *dto.UpdateRoomDTO) (*domain.Room, error) {
	r.log.Info("update room started",
		zap.String("slug", d.Slug),
		zap.Bool("replace_users", d.ReplaceUsers),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку комнаты, чтобы прочитать createdBy
	if _, err := scanRoom(tx.QueryRow(ctx, selectRoomForUpdateQuery, d.Slug)); err != nil {
		return nil, handleDBError(err)
	}

	room, err := scanRoom(tx.QueryRow(ctx, updateRoomQuery, d.Slug, d.Name, d.WebhookURL))
	if err != nil {
		r.log.Error("failed to update room", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}

	if d.ReplaceUsers {
		if _, err := tx.Exec(ctx, deleteRoomMembersQuery, d.Slug); err != nil {
			return nil, handleDBError(err)
		}
		// Даже если в запросе создателя нет, он остается в комнате
		if err := insertMembers(ctx, tx, d.Slug, domain.EnsureCreator(d.AllowedUsers, room.CreatedBy)); err != nil {
			r.log.Error("failed to replace room members", zap.String("slug", d.Slug), zap.Error(err))
			return nil, handleDBError(err)
		}
	}

	members, err := readMembers(ctx, tx, []string{d.Slug})
	if err != nil {
		return nil, handleDBError(err)
	}
	room.AllowedUsers = members[d.Slug]

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("failed to commit room update", zap.String("slug", d.Slug), zap.Error(err))
		return nil, handleDBError(err)
	}

	r.log.Info("room updated",
		zap.String("slug", room.Slug),
		zap.Int("allowed_users", len(room.AllowedUsers)),
	)
	return room, nil
}

func (r *RoomRepository) ListForUser(ctx context.Context, d *dto.ListRoomsDTO) ([]*domain.Room, error) {
	rows, err := r.db.Query(ctx, selectRoomsForUserQuery, d.Email)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer rows.Close()

	var (
		rooms []*domain.Room
		slugs []string
	)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, handleDBError(err)
		}
		rooms = append(rooms, room)
		slugs = append(slugs, room.Slug)
	}
	if err := rows.Err(); err != nil {
		return nil, handleDBError(err)
	}

	if len(slugs) == 0 {
		return rooms, nil
	}

	members, err := readMembers(ctx, r.db, slugs)
	if err != nil {
		return nil, handleDBError(err)
	}
	for _, room := range rooms {
		room.AllowedUsers = members[room.Slug]
	}

	r.log.Debug("rooms for user loaded",
		zap.String("email", d.Email),
		zap.Int("rooms", len(rooms)),
	)
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*domain.Room, error) {
	room := &domain.Room{}
	err := row.Scan(
		&room.Slug,
		&room.Name,
		&room.WebhookURL,
		&room.CreatedBy,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// вспомогательная функция для записи участников комнаты одним батчем
func insertMembers(ctx context.Context, tx pgx.Tx, slug string, members []domain.RoomMember) error {
	batch := &pgx.Batch{}
	for _, m := range members {
		batch.Queue(insertRoomMemberQuery, slug, m.Email, m.GoogleChatUserId)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// вспомогательная функция для чтения участников нескольких комнат
func readMembers(ctx context.Context, exec queryExecutor, slugs []string) (map[string][]domain.RoomMember, error) {
	rows, err := exec.Query(ctx, selectRoomMembersQuery, slugs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make(map[string][]domain.RoomMember, len(slugs))
	for rows.Next() {
		var (
			slug string
			m    domain.RoomMember
		)
		if err := rows.Scan(&slug, &m.Email, &m.GoogleChatUserId); err != nil {
			return nil, err
		}
		members[slug] = append(members[slug], m)
	}
	return members, rows.Err()
}
