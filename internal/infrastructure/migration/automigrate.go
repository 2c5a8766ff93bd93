package migration

import (
	"clipforge/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.LoginAttemptModel{},
		&models.AuthEventModel{},
	}
}
