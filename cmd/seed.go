package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/db"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/util"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo agents and contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo agents and contacts...")

		if err := seedAgents(sqlDB); err != nil {
			return err
		}
		if err := seedContacts(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedAgents inserts deterministic demo agents (idempotent).
func seedAgents(dbx *sqlx.DB) error {
	agents := []model.Agent{
		{
			Name:         "Ana Support",
			Email:        "ana@example.com",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Ben Sales",
			Email:        "ben@example.com",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			Name:         "Cron Bot",
			Email:        "bot@example.com",
			APIKey:       "33333333333333333333333333333333",
			Status:       "active",
			RateLimitRPS: nil,
		},
		{
			Name:         "Former Employee",
			Email:        "gone@example.com",
			APIKey:       "44444444444444444444444444444444",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO agents
    (name, email, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name           = VALUES(name),
    email          = VALUES(email),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, a := range agents {
		if _, err := tx.Exec(q, a.Name, a.Email, a.APIKey, a.Status, a.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert agent %q: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit agents: %w", err)
	}
	return nil
}

// seedContacts inserts a handful of demo contacts, skipping ones that
// already exist by phone number.
func seedContacts(dbx *sqlx.DB) error {
	contacts := []model.Contact{
		{
			Name:     "Maria Garcia",
			Phone:    sql.NullString{String: "+15550100001", Valid: true},
			WhatsApp: sql.NullString{String: "+15550100001", Valid: true},
			Tags:     model.Tags{"vip"},
		},
		{
			Name:      "Jon Doe",
			Phone:     sql.NullString{String: "+15550100002", Valid: true},
			Instagram: sql.NullString{String: "17890001112223334", Valid: true},
			Tags:      model.Tags{"trial"},
		},
		{
			Name:  "Lee Chen",
			Email: sql.NullString{String: "lee@example.com", Valid: true},
			Tags:  model.Tags{},
		},
	}

	const exists = `SELECT COUNT(*) FROM contacts WHERE phone = ? OR (phone IS NULL AND name = ?)`
	const insert = `
INSERT INTO contacts
    (id, name, phone, whatsapp, instagram, email, tags, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	now := time.Now()
	for _, c := range contacts {
		var n int
		if err := dbx.Get(&n, exists, c.Phone, c.Name); err != nil {
			return fmt.Errorf("check contact %q: %w", c.Name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := dbx.Exec(insert,
			util.NewID(), c.Name, c.Phone, c.WhatsApp, c.Instagram, c.Email, c.Tags, now, now,
		); err != nil {
			return fmt.Errorf("insert contact %q: %w", c.Name, err)
		}
	}
	return nil
}

func intptr(i int) *int { return &i }
