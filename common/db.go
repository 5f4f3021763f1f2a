package common

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nexuslab/config"
)

// ConnectDb opens the application database. Postgres is used when
// DATABASE_URL is set; otherwise a local sqlite file.
func ConnectDb(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true, // duplicate-key detection relies on gorm.ErrDuplicatedKey
	}

	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Println("connected to postgres database")
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	if err != nil {
		return nil, err
	}
	log.Println("opened sqlite db at:", cfg.SQLitePath)
	return db, nil
}
