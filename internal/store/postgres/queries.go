package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const contestColumns = `server_id, interval_minutes, paused, active, asked_question_ids, notify_role_id,
	public_channel_id, staff_channel_id, info_channel_id, info_message_id,
	panel_channel_id, panel_message_id, started_at, updated_at`

const getContest = `SELECT ` + contestColumns + ` FROM trivia_contests WHERE server_id = $1`

const listActiveContests = `SELECT ` + contestColumns + ` FROM trivia_contests WHERE active ORDER BY server_id`

const upsertContest = `
INSERT INTO trivia_contests (server_id, interval_minutes, paused, active, asked_question_ids, notify_role_id,
	public_channel_id, staff_channel_id, info_channel_id, info_message_id,
	panel_channel_id, panel_message_id, started_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (server_id) DO UPDATE SET
	interval_minutes   = EXCLUDED.interval_minutes,
	paused             = EXCLUDED.paused,
	active             = EXCLUDED.active,
	asked_question_ids = EXCLUDED.asked_question_ids,
	notify_role_id     = EXCLUDED.notify_role_id,
	public_channel_id  = EXCLUDED.public_channel_id,
	staff_channel_id   = EXCLUDED.staff_channel_id,
	info_channel_id    = EXCLUDED.info_channel_id,
	info_message_id    = EXCLUDED.info_message_id,
	panel_channel_id   = EXCLUDED.panel_channel_id,
	panel_message_id   = EXCLUDED.panel_message_id,
	started_at         = EXCLUDED.started_at,
	updated_at         = now()`

const setContestPaused = `UPDATE trivia_contests SET paused = $2, updated_at = now() WHERE server_id = $1`

const setContestActive = `UPDATE trivia_contests SET active = $2, updated_at = now() WHERE server_id = $1`

const markQuestionAsked = `
UPDATE trivia_contests SET
	asked_question_ids = CASE
		WHEN $2::text = ANY(asked_question_ids) THEN asked_question_ids
		ELSE array_append(asked_question_ids, $2::text)
	END,
	updated_at = $3
WHERE server_id = $1`

const insertQuestion = `
INSERT INTO trivia_questions (server_id, question_id, text, accepted_answers, require_all_answers, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const questionColumns = `question_id, text, accepted_answers, require_all_answers, created_at`

const getQuestion = `SELECT ` + questionColumns + ` FROM trivia_questions WHERE server_id = $1 AND question_id = $2`

const nextUnseenQuestion = `
SELECT ` + questionColumns + ` FROM trivia_questions
WHERE server_id = $1 AND question_id <> ALL($2::text[])
ORDER BY seq
LIMIT 1`

const listQuestions = `SELECT ` + questionColumns + ` FROM trivia_questions WHERE server_id = $1 ORDER BY seq`

const awardPoint = `
INSERT INTO trivia_leaderboard (server_id, participant_id, display_name, score, answered_question_ids)
VALUES ($1, $2, $3, $4, ARRAY[$5::text])
ON CONFLICT (server_id, participant_id) DO UPDATE SET
	score = trivia_leaderboard.score + EXCLUDED.score,
	display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), trivia_leaderboard.display_name),
	answered_question_ids = CASE
		WHEN $5::text = ANY(trivia_leaderboard.answered_question_ids) THEN trivia_leaderboard.answered_question_ids
		ELSE array_append(trivia_leaderboard.answered_question_ids, $5::text)
	END`

const listLeaderboard = `
SELECT participant_id, display_name, score, answered_question_ids, first_win_seq
FROM trivia_leaderboard
WHERE server_id = $1
ORDER BY first_win_seq`

const clearLeaderboard = `DELETE FROM trivia_leaderboard WHERE server_id = $1`
