package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Migration スキーマのバージョン1つ分
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations 適用順に並べる。適用済みのものは書き換えないこと。
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_analyses",
		SQL: `
			CREATE TABLE IF NOT EXISTS analyses (
				id              TEXT PRIMARY KEY,
				candidate_id    TEXT NOT NULL DEFAULT '',
				candidate_name  TEXT NOT NULL DEFAULT '',
				candidate_email TEXT NOT NULL DEFAULT '',
				total_score     INTEGER NOT NULL,
				weighted_score  REAL NOT NULL,
				recommendation  TEXT NOT NULL DEFAULT '',
				degraded        INTEGER NOT NULL DEFAULT 0,
				result_json     TEXT NOT NULL,
				created_at      TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_analyses_candidate ON analyses(candidate_id, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create_processing_logs",
		SQL: `
			CREATE TABLE IF NOT EXISTS processing_logs (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
				stage       TEXT NOT NULL,
				status      TEXT NOT NULL,
				message     TEXT NOT NULL DEFAULT '',
				duration_ms INTEGER NOT NULL DEFAULT 0,
				created_at  TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_processing_logs_analysis ON processing_logs(analysis_id);
		`,
	},
}

// Open SQLiteデータベースを開き、WALと外部キーを有効にしてスキーマを最新にする
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("データベースのディレクトリ作成に失敗: %w", err)
		}
	}

	// PRAGMA は接続ごとの設定なので DSN で全接続に適用する
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("データベースを開けません: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースに接続できません: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[データベース] 初期化しました: %s", path)
	return db, nil
}

// Migrate 未適用のマイグレーションをバージョン順に適用する
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := Transaction(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("マイグレーション %03d_%s の適用に失敗: %w", m.Version, m.Name, err)
		}
		log.Printf("[データベース] マイグレーション %03d_%s を適用しました", m.Version, m.Name)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("適用済みマイグレーションの取得に失敗: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Transaction fn をトランザクション内で実行する。エラーかpanicならロールバック。
func Transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}
