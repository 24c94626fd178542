package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/result"
	"go.uber.org/zap"
)

const (
	insertReviewQuery = `
INSERT INTO reviews (id, room_id, title, link, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, room_id, title, link, status, created_by, created_at, updated_at;`

	insertAssigneeQuery = `
INSERT INTO review_assignees (review_id, email, status, position)
VALUES ($1, $2, $3, $4);`

	deleteAssigneesQuery = `
DELETE FROM review_assignees
WHERE review_id = $1;`

	selectReviewQuery = `
SELECT id, room_id, title, link, status, created_by, created_at, updated_at FROM reviews
WHERE id = $1;`

	selectReviewForUpdateQuery = `
SELECT id, room_id, title, link, status, created_by, created_at, updated_at FROM reviews
WHERE id = $1
FOR UPDATE;`

	touchReviewQuery = `
UPDATE reviews
SET status = $2,
    updated_at = clock_timestamp()
WHERE id = $1
RETURNING updated_at;`

	selectAssigneesQuery = `
SELECT review_id, email, status FROM review_assignees
WHERE review_id = ANY($1::text[]::uuid[])
ORDER BY review_id, position;`

	selectActiveReviewsQuery = `
SELECT id, room_id, title, link, status, created_by, created_at, updated_at FROM reviews
WHERE room_id = $1 AND status = $2
ORDER BY created_at DESC;`

	selectHistoryReviewsQuery = `
SELECT id, room_id, title, link, status, created_by, created_at, updated_at FROM reviews
WHERE room_id = $1 AND status = $2
ORDER BY updated_at DESC;`

	selectQueueQuery = `
SELECT id, updated_at FROM reviews
WHERE room_id = $1 AND status = $2
ORDER BY updated_at ASC, id ASC;`

	deleteReviewsQuery = `
DELETE FROM reviews
WHERE id = ANY($1::text[]::uuid[]);`

	selectStatusCountsQuery = `
SELECT status, count(*) FROM reviews
WHERE room_id = $1
GROUP BY status;`

	selectReviewerStatsQuery = `
SELECT ra.email,
       count(*) FILTER (WHERE ra.status = 'pending')  AS pending,
       count(*) FILTER (WHERE ra.status = 'reviewed') AS reviewed
FROM review_assignees ra
JOIN reviews r ON r.id = ra.review_id
WHERE r.room_id = $1 AND r.status = 'active'
GROUP BY ra.email
ORDER BY pending DESC, ra.email;`
)

type ReviewRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewReviewRepository(db *pgxpool.Pool, log *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:  db,
		log: log,
	}
}

func (r *ReviewRepository) Create(ctx context.Context, d *dto.CreateReviewDTO) (*domain.Review, error) {
	r.log.Info("create review started",
		zap.String("review_id", d.Id),
		zap.String("room_id", d.RoomId),
		zap.Int("assignees", len(d.Assignees)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer tx.Rollback(ctx)

	review, err := scanReview(tx.QueryRow(ctx, insertReviewQuery, d.Id, d.RoomId, d.Title, d.Link, d.CreatedBy))
	if err != nil {
		r.log.Error("failed to insert review", zap.String("review_id", d.Id), zap.Error(err))
		return nil, handleDBError(err)
	}

	if err := writeAssignees(ctx, tx, review.Id, d.Assignees); err != nil {
		r.log.Error("failed to insert assignees", zap.String("review_id", d.Id), zap.Error(err))
		return nil, handleDBError(err)
	}
	review.Assignees = d.Assignees

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("failed to commit review creation", zap.String("review_id", d.Id), zap.Error(err))
		return nil, handleDBError(err)
	}

	r.log.Info("review created",
		zap.String("review_id", review.Id),
		zap.String("room_id", review.RoomId),
	)
	return review, nil
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (*domain.Review, error) {
	review, err := readReview(ctx, r.db, selectReviewQuery, id)
	if err != nil {
		return nil, handleDBError(err)
	}
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, d *dto.ListReviewsDTO) ([]*domain.Review, error) {
	query := selectActiveReviewsQuery
	if d.Status.Terminal() {
		query = selectHistoryReviewsQuery
	}

	rows, err := r.db.Query(ctx, query, d.RoomId, string(d.Status))
	if err != nil {
		return nil, handleDBError(err)
	}
	defer rows.Close()

	var (
		reviews []*domain.Review
		ids     []string
	)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, handleDBError(err)
		}
		reviews = append(reviews, review)
		ids = append(ids, review.Id)
	}
	if err := rows.Err(); err != nil {
		return nil, handleDBError(err)
	}
	if len(ids) == 0 {
		return reviews, nil
	}

	assignees, err := readAssignees(ctx, r.db, ids)
	if err != nil {
		return nil, handleDBError(err)
	}
	for _, review := range reviews {
		review.Assignees = assignees[review.Id]
	}

	r.log.Debug("reviews listed",
		zap.String("room_id", d.RoomId),
		zap.String("status", string(d.Status)),
		zap.Int("count", len(reviews)),
	)
	return reviews, nil
}

// SetStatus переводит ревью в done/deleted и подрезает очередь этого статуса в комнате
func (r *ReviewRepository) SetStatus(ctx context.Context, d *dto.SetStatusDTO) (*result.SetStatusResult, error) {
	r.log.Info("set review status started",
		zap.String("review_id", d.ReviewId),
		zap.String("status", string(d.Status)),
	)

	res := &result.SetStatusResult{}
	review, err := r.mutate(ctx, d.ReviewId, func(tx pgx.Tx, rv *domain.Review) (bool, error) {
		changed, err := domain.CheckTransition(rv.Status, d.Status)
		if err != nil || !changed {
			return false, err
		}
		rv.Status = d.Status
		res.Changed = true
		return true, nil
	}, func(tx pgx.Tx, rv *domain.Review) error {
		evicted, err := r.trimQueue(ctx, tx, rv.RoomId, rv.Status)
		res.Evicted = evicted
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Review = review

	r.log.Info("review status set",
		zap.String("review_id", review.Id),
		zap.String("status", string(review.Status)),
		zap.Bool("changed", res.Changed),
		zap.Int("evicted", len(res.Evicted)),
	)
	return res, nil
}

func (r *ReviewRepository) MarkReviewed(ctx context.Context, d *dto.MarkReviewedDTO) (*result.MarkReviewedResult, error) {
	res := &result.MarkReviewedResult{}
	review, err := r.mutate(ctx, d.ReviewId, func(tx pgx.Tx, rv *domain.Review) (bool, error) {
		if rv.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		rv.Assignees, res.Touched = domain.MarkReviewed(rv.Assignees, d.Email)
		return res.Touched, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	res.Review = review

	r.log.Info("review marked as reviewed",
		zap.String("review_id", d.ReviewId),
		zap.String("email", d.Email),
		zap.Bool("touched", res.Touched),
	)
	return res, nil
}

func (r *ReviewRepository) MarkUpdated(ctx context.Context, d *dto.MarkUpdatedDTO) (*domain.Review, error) {
	review, err := r.mutate(ctx, d.ReviewId, func(tx pgx.Tx, rv *domain.Review) (bool, error) {
		if rv.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		// Проверка под блокировкой строки: параллельный MarkUpdated мог уже сбросить статусы
		if !domain.HasReviewed(rv.Assignees) {
			return false, domain.ErrNothingReviewed
		}
		rv.Assignees = domain.ResetAssignees(rv.Assignees)
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	r.log.Info("review marked as updated", zap.String("review_id", d.ReviewId))
	return review, nil
}

func (r *ReviewRepository) UpdateAssignees(ctx context.Context, d *dto.UpdateAssigneesDTO) (*result.UpdateAssigneesResult, error) {
	res := &result.UpdateAssigneesResult{}
	review, err := r.mutate(ctx, d.ReviewId, func(tx pgx.Tx, rv *domain.Review) (bool, error) {
		if rv.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		rv.Assignees, res.Added, res.Removed = domain.MergeAssignees(rv.Assignees, d.Emails)
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	res.Review = review

	r.log.Info("review assignees replaced",
		zap.String("review_id", d.ReviewId),
		zap.Strings("added", res.Added),
		zap.Strings("removed", res.Removed),
	)
	return res, nil
}

func (r *ReviewRepository) RemoveReviewer(ctx context.Context, d *dto.RemoveReviewerDTO) (*result.RemoveReviewerResult, error) {
	res := &result.RemoveReviewerResult{}
	review, err := r.mutate(ctx, d.ReviewId, func(tx pgx.Tx, rv *domain.Review) (bool, error) {
		if rv.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		rv.Assignees, res.Removed, res.Empty = domain.RemoveAssignee(rv.Assignees, d.Email)
		return res.Removed, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	res.Review = review

	r.log.Info("reviewer removed",
		zap.String("review_id", d.ReviewId),
		zap.String("email", d.Email),
		zap.Bool("removed", res.Removed),
		zap.Bool("empty", res.Empty),
	)
	return res, nil
}

func (r *ReviewRepository) Stats(ctx context.Context, d *dto.RoomStatsDTO) (*result.RoomStatsResult, error) {
	res := &result.RoomStatsResult{}

	rows, err := r.db.Query(ctx, selectStatusCountsQuery, d.RoomId)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, handleDBError(err)
		}
		switch domain.ReviewStatus(status) {
		case domain.ReviewActive:
			res.Active = count
		case domain.ReviewDone:
			res.Done = count
		case domain.ReviewDeleted:
			res.Deleted = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, handleDBError(err)
	}

	reviewerRows, err := r.db.Query(ctx, selectReviewerStatsQuery, d.RoomId)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer reviewerRows.Close()
	for reviewerRows.Next() {
		var s result.ReviewerStats
		if err := reviewerRows.Scan(&s.Email, &s.Pending, &s.Reviewed); err != nil {
			return nil, handleDBError(err)
		}
		res.Reviewers = append(res.Reviewers, s)
	}
	if err := reviewerRows.Err(); err != nil {
		return nil, handleDBError(err)
	}

	return res, nil
}

// mutate читает ревью под блокировкой, применяет переход и записывает результат.
// Если apply вернул changed=false, запись не трогается.
// after выполняется в той же транзакции после записи.
func (r *ReviewRepository) mutate(
	ctx context.Context,
	id string,
	apply func(tx pgx.Tx, rv *domain.Review) (bool, error),
	after func(tx pgx.Tx, rv *domain.Review) error,
) (*domain.Review, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, handleDBError(err)
	}
	defer tx.Rollback(ctx)

	review, err := readReview(ctx, tx, selectReviewForUpdateQuery, id)
	if err != nil {
		return nil, handleDBError(err)
	}

	changed, err := apply(tx, review)
	if err != nil {
		return nil, err
	}
	if !changed {
		return review, nil
	}

	if err := tx.QueryRow(ctx, touchReviewQuery, review.Id, string(review.Status)).Scan(&review.UpdatedAt); err != nil {
		r.log.Error("failed to update review", zap.String("review_id", id), zap.Error(err))
		return nil, handleDBError(err)
	}
	if _, err := tx.Exec(ctx, deleteAssigneesQuery, review.Id); err != nil {
		return nil, handleDBError(err)
	}
	if err := writeAssignees(ctx, tx, review.Id, review.Assignees); err != nil {
		r.log.Error("failed to write assignees", zap.String("review_id", id), zap.Error(err))
		return nil, handleDBError(err)
	}

	if after != nil {
		if err := after(tx, review); err != nil {
			return nil, handleDBError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("failed to commit review update", zap.String("review_id", id), zap.Error(err))
		return nil, handleDBError(err)
	}
	return review, nil
}

// trimQueue оставляет в комнате не больше HistoryLimit ревью с данным статусом,
// удаляя самые старые по updated_at
func (r *ReviewRepository) trimQueue(ctx context.Context, tx pgx.Tx, roomId string, status domain.ReviewStatus) ([]string, error) {
	rows, err := tx.Query(ctx, selectQueueQuery, roomId, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queue []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.Id, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		queue = append(queue, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	evicted := domain.QueueEvictions(queue, domain.HistoryLimit)
	if len(evicted) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, deleteReviewsQuery, evicted); err != nil {
		return nil, err
	}

	r.log.Info("review queue trimmed",
		zap.String("room_id", roomId),
		zap.String("status", string(status)),
		zap.Strings("evicted", evicted),
	)
	return evicted, nil
}

type queryExecutor interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanReview(row rowScanner) (*domain.Review, error) {
	review := &domain.Review{}
	var status string
	err := row.Scan(
		&review.Id,
		&review.RoomId,
		&review.Title,
		&review.Link,
		&status,
		&review.CreatedBy,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	review.Status = domain.ReviewStatus(status)
	return review, nil
}

// вспомогательная функция для чтения ревью вместе с ревьюерами
func readReview(ctx context.Context, exec queryExecutor, query, id string) (*domain.Review, error) {
	review, err := scanReview(exec.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	assignees, err := readAssignees(ctx, exec, []string{review.Id})
	if err != nil {
		return nil, err
	}
	review.Assignees = assignees[review.Id]
	return review, nil
}

func readAssignees(ctx context.Context, exec queryExecutor, ids []string) (map[string][]domain.Assignee, error) {
	rows, err := exec.Query(ctx, selectAssigneesQuery, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignees := make(map[string][]domain.Assignee, len(ids))
	for rows.Next() {
		var (
			reviewId string
			email    string
			status   string
		)
		if err := rows.Scan(&reviewId, &email, &status); err != nil {
			return nil, err
		}
		assignees[reviewId] = append(assignees[reviewId], domain.Assignee{
			Email:  email,
			Status: domain.AssigneeStatus(status),
		})
	}
	return assignees, rows.Err()
}

func writeAssignees(ctx context.Context, tx pgx.Tx, reviewId string, assignees []domain.Assignee) error {
	batch := &pgx.Batch{}
	for i, a := range assignees {
		batch.Queue(insertAssigneeQuery, reviewId, a.Email, string(a.Status), i)
	}
	return tx.SendBatch(ctx, batch).Close()
}
