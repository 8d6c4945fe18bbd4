package logging

import (
	"log/slog"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/models"
	"gorm.io/gorm"
)

const retentionDays = 30

// Cleanup deletes system_logs older than the retention window. Scheduled
// daily from main.
func Cleanup(db *gorm.DB) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
}
