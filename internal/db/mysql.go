// Package db opens the MySQL connection shared by the provisioning
// repositories. The handle is constructed once in main and injected; nothing
// holds it as a package-level singleton.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL returns a connected GORM DB instance. The DSN must carry
// parseTime=True, or token expiry and lockout timestamps will not scan.
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}
