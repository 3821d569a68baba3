package db

import (
	"log"

	"royalty-split-manager/internal/domain"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.Work{},
		&domain.Collaborator{},
		&domain.PublishingEntity{},
		&domain.CollaboratorShare{},
		&domain.PublishingEntityShare{},
		&domain.SplitRevision{},
		&domain.Contract{},
		&domain.WebhookReceipt{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}
