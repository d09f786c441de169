package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/gwhitt/roundbook/internal/config"
	"github.com/gwhitt/roundbook/internal/db"
	"github.com/gwhitt/roundbook/internal/schedule"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo round",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
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

		log.Println(">> Seeding demo round...")

		if err := seedRound(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedCustomer struct {
	name    string
	address string
	phone   string
	price   int64 // pence
	weeks   int
	tag     string
	due     schedule.Date
}

// seedRound inserts one demo account with a deterministic round
// (idempotent: api_key and names are upsert keys).
func seedRound(dbx *sqlx.DB) error {
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	monday := schedule.DateOf(now)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDays(1)
	}

	// account
	const accountQ = `
INSERT INTO accounts
    (name, api_key, status, rate_limit_rps, default_service, message_footer, created_at, updated_at)
VALUES
    (?, ?, 'active', ?, 'Window Cleaning', ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    status     = VALUES(status),
    updated_at = VALUES(updated_at)
`
	if _, err := tx.Exec(accountQ,
		"Shine Right Windows",
		"11111111111111111111111111111111",
		20,
		"Shine Right Windows, 07700 900123",
		now, now,
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	var accountID int64
	if err := tx.Get(&accountID, `SELECT id FROM accounts WHERE api_key = ?`, "11111111111111111111111111111111"); err != nil {
		return fmt.Errorf("select account: %w", err)
	}

	// payment notice template
	const templateQ = `
INSERT INTO templates (account_id, title, body, include_price, created_at, updated_at)
VALUES (?, 'Payment due', 'Your window cleaning balance of £ is now due. You can pay by bank transfer or cash next visit.', 1, ?, ?)
ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at)
`
	if _, err := tx.Exec(templateQ, accountID, now, now); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	var templateID int64
	if err := tx.Get(&templateID, `SELECT id FROM templates WHERE account_id = ? AND title = 'Payment due'`, accountID); err != nil {
		return fmt.Errorf("select template: %w", err)
	}
	if _, err := tx.Exec(`UPDATE accounts SET pay_template_id = ? WHERE id = ?`, templateID, accountID); err != nil {
		return fmt.Errorf("link template: %w", err)
	}

	// customers across the first week of the round
	customers := []seedCustomer{
		{"Bob & Sue Smith", "1 Orchard Lane", "07700 900001", 1500, 4, "red", monday},
		{"Janet Price", "14 Orchard Lane", "07700 900002", 1200, 4, "red", monday},
		{"Arjun Patel", "3 Mill Road", "07700 900003", 2000, 8, "blue", monday.AddDays(1)},
		{"The Willows Care Home", "Mill Road", "07700 900004", 6500, 2, "blue", monday.AddDays(1)},
		{"Dave Hartley", "22 Station Approach", "07700 900005", 1000, 4, "", monday.AddDays(3)},
	}

	const customerQ = `
INSERT INTO customers
    (account_id, name, address, phone, price, outstanding, next_due, weeks, route_tag, next_service, notes, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, 0, ?, ?, ?, 'Window Cleaning', '', ?, ?)
ON DUPLICATE KEY UPDATE
    address    = VALUES(address),
    phone      = VALUES(phone),
    updated_at = VALUES(updated_at)
`
	for _, c := range customers {
		if _, err := tx.Exec(customerQ,
			accountID, c.name, c.address, c.phone, c.price,
			c.due.String(), c.weeks, c.tag, now, now,
		); err != nil {
			return fmt.Errorf("insert customer %q: %w", c.name, err)
		}
	}

	// price list mirrors the customer prices
	const priceQ = `
INSERT INTO price_list (customer_id, service, price, created_at, updated_at)
SELECT c.id, 'Window Cleaning', c.price, NOW(), NOW()
FROM customers c
LEFT JOIN price_list p ON p.customer_id = c.id AND p.service = 'Window Cleaning'
WHERE c.account_id = ? AND p.customer_id IS NULL
`
	if _, err := tx.Exec(priceQ, accountID); err != nil {
		return fmt.Errorf("insert price list: %w", err)
	}

	// route ledger in seed order
	const ledgerQ = `
INSERT INTO route_ledgers (account_id, sequence, updated_at)
SELECT ?, GROUP_CONCAT(id ORDER BY id SEPARATOR ','), NOW()
FROM customers WHERE account_id = ?
ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at)
`
	if _, err := tx.Exec(ledgerQ, accountID, accountID); err != nil {
		return fmt.Errorf("insert route ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
