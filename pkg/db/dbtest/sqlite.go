// Package dbtest opens throwaway sqlite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		last_login_at DATETIME,
		stripe_account_id TEXT UNIQUE,
		stripe_onboarding_status TEXT NOT NULL DEFAULT 'NOT_STARTED',
		stripe_details_submitted BOOLEAN NOT NULL DEFAULT 0,
		stripe_charges_enabled BOOLEAN NOT NULL DEFAULT 0,
		stripe_payouts_enabled BOOLEAN NOT NULL DEFAULT 0,
		stripe_requirements TEXT,
		stripe_disabled_reason TEXT,
		stripe_last_synced_at DATETIME,
		stripe_disconnected_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS canvases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		host_id TEXT NOT NULL,
		canvas_id TEXT,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		start_date_time DATETIME NOT NULL,
		end_date_time DATETIME,
		location_name TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		zip TEXT NOT NULL,
		ticket_price_cents INTEGER NOT NULL,
		capacity INTEGER NOT NULL,
		sales_cutoff_hours INTEGER NOT NULL DEFAULT 48,
		refund_policy_text TEXT,
		canvas_image_url TEXT,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		purchaser_name TEXT NOT NULL,
		purchaser_email TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		amount_paid_cents INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		checkout_session_id TEXT UNIQUE,
		payment_intent_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`,
}

// Open returns an isolated in-memory database with every table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
