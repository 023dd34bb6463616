package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Connect opens the MySQL database and migrates the schema. Default
// per-statement transactions are skipped: every write in this package is a
// single conditional statement and atomic on its own.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(&TrialRecord{}, &PaymentOrder{}); err != nil {
		return nil, err
	}

	return gdb, nil
}
