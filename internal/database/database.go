package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "studyloop_user")
	password := getEnv("DB_PASSWORD", "studyloop_password")
	dbname := getEnv("DB_NAME", "studyloop")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS learners (
		id          BIGSERIAL PRIMARY KEY,
		email       VARCHAR(255) UNIQUE NOT NULL,
		name        VARCHAR(255) NOT NULL,
		password    VARCHAR(255) NOT NULL,
		grade_level INT,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_learners_email ON learners(email);

	CREATE TABLE IF NOT EXISTS questions (
		id             BIGSERIAL PRIMARY KEY,
		question_text  TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		hints          TEXT[] NOT NULL DEFAULT '{}',
		explanation    TEXT NOT NULL DEFAULT '',
		solution_steps TEXT[] NOT NULL DEFAULT '{}',
		topic_id       VARCHAR(100) NOT NULL,
		topic_name     VARCHAR(255) NOT NULL,
		subtopic_id    VARCHAR(100),
		subtopic_name  VARCHAR(255),
		difficulty     VARCHAR(20) NOT NULL,
		grade_level    INT,
		content_hash   VARCHAR(64) UNIQUE NOT NULL,
		quality_score  DOUBLE PRECISION NOT NULL DEFAULT 70,
		usage_count    INT NOT NULL DEFAULT 0,
		success_rate   DOUBLE PRECISION NOT NULL DEFAULT 0,
		source         VARCHAR(30) NOT NULL DEFAULT 'cache-generated',
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id, subtopic_id, difficulty);
	CREATE INDEX IF NOT EXISTS idx_questions_grade ON questions(grade_level);

	CREATE TABLE IF NOT EXISTS curated_questions (
		id             BIGSERIAL PRIMARY KEY,
		question_text  TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		hints          TEXT[] NOT NULL DEFAULT '{}',
		explanation    TEXT NOT NULL DEFAULT '',
		solution_steps TEXT[] NOT NULL DEFAULT '{}',
		topic_label    VARCHAR(255) NOT NULL,
		difficulty     VARCHAR(20),
		grade_level    INT,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_curated_topic ON curated_questions(topic_label, difficulty);

	CREATE TABLE IF NOT EXISTS question_exposures (
		id          BIGSERIAL PRIMARY KEY,
		learner_id  BIGINT NOT NULL,
		topic_id    VARCHAR(100) NOT NULL,
		question_id BIGINT,
		text_hash   VARCHAR(64) NOT NULL,
		difficulty  VARCHAR(20) NOT NULL,
		source      VARCHAR(30) NOT NULL,
		shown_at    TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_exposures_learner ON question_exposures(learner_id, topic_id, shown_at DESC);

	CREATE TABLE IF NOT EXISTS performance_samples (
		id            BIGSERIAL PRIMARY KEY,
		learner_id    BIGINT NOT NULL,
		topic_id      VARCHAR(100) NOT NULL,
		subtopic_id   VARCHAR(100),
		difficulty    VARCHAR(20) NOT NULL,
		is_correct    BOOLEAN NOT NULL,
		time_taken_ms BIGINT NOT NULL DEFAULT 0,
		hints_used    INT NOT NULL DEFAULT 0,
		attempts      INT NOT NULL DEFAULT 1,
		recorded_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_samples_learner ON performance_samples(learner_id, topic_id, recorded_at DESC);

	CREATE TABLE IF NOT EXISTS question_usage_events (
		id          BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id),
		learner_id  BIGINT,
		is_correct  BOOLEAN NOT NULL,
		recorded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_usage_question ON question_usage_events(question_id);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
