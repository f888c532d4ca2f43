package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"exam-practice-service/internal/domain"
)

// StatsReader computes dashboard statistics with a direct aggregate query
// instead of loading every session into memory.
type StatsReader struct {
	pool *pgxpool.Pool
}

func NewStatsReader(pool *pgxpool.Pool) *StatsReader {
	return &StatsReader{pool: pool}
}

func (r *StatsReader) UserStatistics(ctx context.Context, userID int64) (domain.UserStatistics, error) {
	stats := domain.UserStatistics{UserID: userID}

	var (
		averageScore float64
		lastQuizDate *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_correct), 0),
			COALESCE(AVG(total_score), 0),
			COALESCE(MAX(total_score), 0),
			COALESCE(SUM(ROUND(EXTRACT(EPOCH FROM (completed_at - started_at)) / 60.0)), 0)::bigint,
			MAX(completed_at)
		FROM quiz_sessions
		WHERE user_id = $1 AND is_completed = TRUE AND completed_at IS NOT NULL`,
		userID,
	).Scan(
		&stats.TotalQuizzesTaken,
		&stats.TotalCorrectAnswers,
		&averageScore,
		&stats.BestScore,
		&stats.TotalTimeSpentMinutes,
		&lastQuizDate,
	)
	if err != nil {
		return domain.UserStatistics{}, fmt.Errorf("aggregate sessions: %w", err)
	}
	stats.AverageScore = averageScore
	stats.LastQuizDate = lastQuizDate

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM user_answers ua
		JOIN quiz_sessions qs ON qs.id = ua.session_id
		WHERE qs.user_id = $1`,
		userID,
	).Scan(&stats.TotalQuestionsAnswered)
	if err != nil {
		return domain.UserStatistics{}, fmt.Errorf("count answers: %w", err)
	}

	return stats, nil
}
