package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the booking tables.  Ledger rows are keyed by room type
// and date (and slot start) so that locking a night or a slot is a single
// primary key lookup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS room_types (
		id                      BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		hotel_id                BIGINT UNSIGNED NOT NULL,
		name                    VARCHAR(120)    NOT NULL,
		total_rooms             INT             NOT NULL,
		base_price_daily_cents  BIGINT          NOT NULL,
		base_price_hourly_cents BIGINT          NULL,
		max_guests              INT             NOT NULL,
		extra_guest_fee_cents   BIGINT          NOT NULL DEFAULT 0,
		hourly_min_hours        INT             NOT NULL DEFAULT 0,
		hourly_max_hours        INT             NOT NULL DEFAULT 0,
		open_hour               TINYINT         NOT NULL DEFAULT 0,
		close_hour              TINYINT         NOT NULL DEFAULT 24,
		active                  TINYINT(1)      NOT NULL DEFAULT 1,
		created_at              DATETIME(6)     NOT NULL,
		updated_at              DATETIME(6)     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_room_types_hotel (hotel_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS inventory_days (
		room_type_id    BIGINT UNSIGNED NOT NULL,
		stay_date       DATE            NOT NULL,
		available_count INT             NULL,
		price_cents     BIGINT          NULL,
		closed          TINYINT(1)      NOT NULL DEFAULT 0,
		min_stay_nights INT             NOT NULL DEFAULT 0,
		held            INT             NOT NULL DEFAULT 0,
		updated_at      DATETIME(6)     NOT NULL,
		PRIMARY KEY (room_type_id, stay_date),
		CONSTRAINT chk_inventory_days_held CHECK (held >= 0),
		CONSTRAINT fk_inventory_days_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS hourly_slots (
		room_type_id    BIGINT UNSIGNED NOT NULL,
		slot_date       DATE            NOT NULL,
		start_hour      TINYINT         NOT NULL,
		end_hour        TINYINT         NOT NULL,
		available_count INT             NULL,
		price_cents     BIGINT          NULL,
		closed          TINYINT(1)      NOT NULL DEFAULT 0,
		held            INT             NOT NULL DEFAULT 0,
		updated_at      DATETIME(6)     NOT NULL,
		PRIMARY KEY (room_type_id, slot_date, start_hour),
		CONSTRAINT chk_hourly_slots_held CHECK (held >= 0),
		CONSTRAINT fk_hourly_slots_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		number              VARCHAR(32)     NOT NULL,
		hotel_id            BIGINT UNSIGNED NOT NULL,
		room_type_id        BIGINT UNSIGNED NOT NULL,
		guest_id            BIGINT UNSIGNED NOT NULL,
		kind                ENUM('DAILY','HOURLY') NOT NULL,
		check_in            DATE            NULL,
		check_out           DATE            NULL,
		slot_date           DATE            NULL,
		start_hour          TINYINT         NULL,
		num_hours           INT             NULL,
		slot_hours          INT             NULL,
		num_rooms           INT             NOT NULL,
		num_guests          INT             NOT NULL,
		extra_guests        INT             NOT NULL DEFAULT 0,
		room_subtotal_cents BIGINT          NOT NULL,
		extra_guest_cents   BIGINT          NOT NULL,
		tax_cents           BIGINT          NOT NULL,
		discount_cents      BIGINT          NOT NULL,
		total_cents         BIGINT          NOT NULL,
		currency            CHAR(3)         NOT NULL,
		status              ENUM('PENDING','CONFIRMED','CHECKED_IN','CHECKED_OUT','CANCELLED') NOT NULL,
		payment_status      ENUM('UNPAID','PAID','VOIDED','REFUND_PENDING','REFUNDED') NOT NULL,
		payment_order_ref   VARCHAR(128)    NULL,
		payment_ref         VARCHAR(128)    NULL,
		refund_cents        BIGINT          NOT NULL DEFAULT 0,
		refund_ref          VARCHAR(128)    NULL,
		guest_name          VARCHAR(200)    NOT NULL,
		guest_email         VARCHAR(254)    NULL,
		guest_phone         VARCHAR(40)     NULL,
		cancellation_reason VARCHAR(255)    NULL,
		cancelled_at        DATETIME(6)     NULL,
		holds_released      TINYINT(1)      NOT NULL DEFAULT 0,
		expires_at          DATETIME(6)     NOT NULL,
		confirmed_at        DATETIME(6)     NULL,
		checked_in_at       DATETIME(6)     NULL,
		checked_out_at      DATETIME(6)     NULL,
		created_at          DATETIME(6)     NOT NULL,
		updated_at          DATETIME(6)     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_bookings_number (number),
		KEY idx_bookings_pending (status, expires_at),
		KEY idx_bookings_guest (guest_id),
		CONSTRAINT fk_bookings_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
