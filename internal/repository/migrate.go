package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// Two active bookings may not share a room, date and start hour. Overlaps
// starting at different hours are caught by the re-check in CreateIfAvailable.
const activeSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
ON bookings (room_id, booking_date, start_time)
WHERE status IN ('pending', 'confirmed')`

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &roomModel{}, &bookingModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeSlotIndex).Error; err != nil {
		return fmt.Errorf("create slot index: %w", err)
	}
	return nil
}
