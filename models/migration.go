package models

import (
	"log"

	"github.com/ltdedn/editions_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{}, &Artist{}, &Product{},
		&ProductEdition{}, &ProductEditionTransfer{},
		&Wallet{}, &ChainToken{}, &CertificateEvent{},
		&NotificationRecord{}, &MonthlyReport{},
	)
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
}
